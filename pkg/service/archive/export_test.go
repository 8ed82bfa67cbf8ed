package archive

// Export internal functions for testing
var EncodeTranscript = encodeTranscript
