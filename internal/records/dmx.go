package records

// NormalizeChannels copies data into a full universe. Short payloads leave the tail
// zeroed and long payloads are truncated.
func NormalizeChannels(data []byte) [UniverseSize]byte {
	var channels [UniverseSize]byte
	copy(channels[:], data)
	return channels
}
