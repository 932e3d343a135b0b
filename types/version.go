package types

// Version is the canonical commtrans version.
// It is reported by `commtrans version` and sent as part of the User-Agent.
const Version = "1.0.0"
