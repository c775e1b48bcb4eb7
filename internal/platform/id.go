package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const deployIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const deployIDLength = 10

// NewDeployID returns a short lowercase identifier that is safe to use as a
// DNS subdomain label and as an object-store key segment.
func NewDeployID() string {
	b := make([]byte, deployIDLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = deployIDAlphabet[b[i]%byte(len(deployIDAlphabet))]
	}
	return string(b)
}

// NewInstanceID returns a unique identifier for a process instance, used to
// tell concurrent workers apart in logs.
func NewInstanceID() string {
	return uuid.New().String()
}
