package common

// DIDNamespace is the method segment of every identifier minted by this
// application: "did:beam:<random>".
const DIDNamespace = "beam"

// MaxMessageChars caps the plaintext length of a single message.
const MaxMessageChars = 1000
