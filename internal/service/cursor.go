package service

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// CursorSeparator is the delimiter used to separate rank and name in the cursor
const CursorSeparator = ":"

// DecodeCursor decodes a base64-encoded cursor string into rank and name components.
// The cursor format is: base64(rank:name)
// Returns zero values if the cursor is empty.
func DecodeCursor(cursor string) (rank int, name string, err error) {
	if cursor == "" {
		return 0, "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", fmt.Errorf("failed to decode cursor: %w", err)
	}

	parts := strings.SplitN(string(decoded), CursorSeparator, 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid cursor format: expected rank:name")
	}

	rank, err = strconv.Atoi(parts[0])
	if err != nil || rank < 1 {
		return 0, "", fmt.Errorf("invalid cursor rank: %q", parts[0])
	}

	return rank, parts[1], nil
}

// EncodeCursor encodes a rank and name into a base64 cursor string.
// Names may contain the separator; only the first one splits.
func EncodeCursor(rank int, name string) string {
	cursorValue := strconv.Itoa(rank) + CursorSeparator + name
	return base64.StdEncoding.EncodeToString([]byte(cursorValue))
}
