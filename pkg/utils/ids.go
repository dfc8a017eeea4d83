package utils

import "github.com/google/uuid"

// GenID returns a fresh opaque identifier for blocks and runs. Run ids
// are generated per playback session and never reused.
func GenID() string {
	return uuid.NewString()
}

// GenChatID returns a fresh chat template identifier.
func GenChatID() string {
	return "chat-" + uuid.NewString()
}
