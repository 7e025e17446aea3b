package frame

// unknownStr is the string representation for unrecognized enum values.
const unknownStr = "Unknown"
