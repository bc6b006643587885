package netutil

import (
	"errors"
	"fmt"
	"io"
)

// SizeLimitExceededError reports a body that grew past its limit.
type SizeLimitExceededError struct {
	Limit int64
	Read  int64
}

func (e *SizeLimitExceededError) Error() string {
	return fmt.Sprintf("response too large: read %s, limit is %s", FormatSize(e.Read), FormatSize(e.Limit))
}

// IsSizeLimitExceededError reports whether err wraps a SizeLimitExceededError.
func IsSizeLimitExceededError(err error) bool {
	var target *SizeLimitExceededError
	return errors.As(err, &target)
}

// ReadAll reads r to EOF. A body of exactly limit bytes is accepted; one
// more byte fails with SizeLimitExceededError without buffering the rest.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	if limit < 0 {
		limit = 0
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &SizeLimitExceededError{Limit: limit, Read: int64(len(data))}
	}
	return data, nil
}

// FormatSize renders a byte count for messages.
func FormatSize(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	}
	return fmt.Sprintf("%d bytes", n)
}
