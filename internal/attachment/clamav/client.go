package clamav

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"
)

// Scan results, mirrored from the attachment package so this client stays
// dependency-free.
const (
	ResultClean    = "CLEAN"
	ResultInfected = "INFECTED"
	ResultFailed   = "FAILED"
)

const chunkSize = 2048

// Client speaks the clamd INSTREAM protocol over TCP: the command line,
// then length-prefixed chunks, then a zero-length terminator.
type Client struct {
	addr        string
	dialTimeout time.Duration
}

func New(host string, port int, dialTimeout time.Duration) *Client {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &Client{
		addr:        fmt.Sprintf("%s:%d", host, port),
		dialTimeout: dialTimeout,
	}
}

// Scan streams data through clamd and parses the verdict line. A transport
// or protocol error maps to FAILED with a non-nil error; the caller decides
// what FAILED means for the row.
func (c *Client) Scan(ctx context.Context, data []byte) (string, string, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return ResultFailed, "", fmt.Errorf("clamd dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("nINSTREAM\n")); err != nil {
		return ResultFailed, "", fmt.Errorf("clamd command: %w", err)
	}

	var sizeBuf [4]byte
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]
		binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(chunk)))
		if _, err := conn.Write(sizeBuf[:]); err != nil {
			return ResultFailed, "", fmt.Errorf("clamd chunk header: %w", err)
		}
		if _, err := conn.Write(chunk); err != nil {
			return ResultFailed, "", fmt.Errorf("clamd chunk: %w", err)
		}
	}

	binary.BigEndian.PutUint32(sizeBuf[:], 0)
	if _, err := conn.Write(sizeBuf[:]); err != nil {
		return ResultFailed, "", fmt.Errorf("clamd terminator: %w", err)
	}

	var resp bytes.Buffer
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			resp.Write(buf[:n])
		}
		if err != nil {
			break
		}
		if bytes.Contains(resp.Bytes(), []byte("\n")) || bytes.Contains(resp.Bytes(), []byte{0}) {
			break
		}
	}

	return parseResponse(resp.String())
}

func parseResponse(raw string) (string, string, error) {
	line := strings.TrimSpace(strings.Trim(raw, "\x00"))
	switch {
	case strings.HasSuffix(line, "OK"):
		return ResultClean, "", nil
	case strings.HasSuffix(line, "FOUND"):
		// "stream: Eicar-Test-Signature FOUND"
		sig := strings.TrimSuffix(line, " FOUND")
		if idx := strings.Index(sig, ":"); idx >= 0 {
			sig = strings.TrimSpace(sig[idx+1:])
		}
		return ResultInfected, sig, nil
	default:
		return ResultFailed, "", fmt.Errorf("unexpected clamd response: %q", line)
	}
}
