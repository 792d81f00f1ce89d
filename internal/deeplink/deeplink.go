// Package deeplink builds and resolves the room links encoded in QR codes.
package deeplink

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	qrcode "github.com/skip2/go-qrcode"
)

// RoomPrefix starts every room payload: room_<id>.
const RoomPrefix = "room_"

// Resolve extracts a room id from the text of a /start command.
// It reports false when the command has no payload or the first payload token
// is not exactly "room_" followed by decimal digits.
func Resolve(text string) (int64, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, false
	}
	return ParsePayload(fields[1])
}

// ParsePayload parses a bare start payload such as "room_42".
func ParsePayload(payload string) (int64, bool) {
	digits, ok := strings.CutPrefix(payload, RoomPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Payload returns the start payload for a room.
func Payload(roomID int64) string {
	return RoomPrefix + strconv.FormatInt(roomID, 10)
}

// Builder renders https://<host>/<bot>?start=room_<id> links. The bot username
// may be learned after startup, so it is stored atomically.
type Builder struct {
	host     string
	username atomic.Value
}

// NewBuilder returns a builder for the given host (default "t.me").
func NewBuilder(host, username string) *Builder {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "t.me"
	}
	b := &Builder{host: host}
	b.SetUsername(username)
	return b
}

// SetUsername updates the bot username used in links.
func (b *Builder) SetUsername(username string) {
	b.username.Store(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// Username returns the configured bot username.
func (b *Builder) Username() string {
	s, _ := b.username.Load().(string)
	return s
}

// RoomLink returns the deep link for a room.
func (b *Builder) RoomLink(roomID int64) (string, error) {
	username := b.Username()
	if username == "" {
		return "", fmt.Errorf("deeplink: bot username is unknown")
	}
	return fmt.Sprintf("https://%s/%s?start=%s", b.host, username, Payload(roomID)), nil
}

// PNGEncoder renders QR codes as PNG images.
type PNGEncoder struct {
	// Size is the image side in pixels.
	Size int
}

// Encode returns a PNG QR code for content with low error correction.
func (e PNGEncoder) Encode(content string) ([]byte, error) {
	size := e.Size
	if size <= 0 {
		size = 320
	}
	png, err := qrcode.Encode(content, qrcode.Low, size)
	if err != nil {
		return nil, fmt.Errorf("deeplink: qr encode: %w", err)
	}
	return png, nil
}
