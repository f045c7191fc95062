/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrNameTooShort      = errors.New("name too short")
	ErrInvalidFormat     = errors.New("name has invalid format")
	ErrNameTaken         = errors.New("name already taken")
	ErrNameLocked        = errors.New("name already claimed for this connection")
	ErrInvalidLocation   = errors.New("location must be finite")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMessageTooLong    = errors.New("message too long")
)

type errorClass int

const (
	classUnknown errorClass = iota
	classValidation
	classConflict
	classProtocol
	classInvariant
)

func (c errorClass) String() string {
	switch c {
	case classValidation:
		return "validation"
	case classConflict:
		return "conflict"
	case classProtocol:
		return "protocol"
	case classInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

func classify(err error) errorClass {
	switch {
	case err == nil:
		return classUnknown
	case errors.Is(err, ErrNameTooShort),
		errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrInvalidLocation),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMessageTooLong):
		return classValidation
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrNameLocked):
		return classConflict
	case errors.Is(err, ErrUnknownConnection):
		return classProtocol
	case errors.Is(err, ErrAlreadyRegistered):
		return classInvariant
	default:
		return classUnknown
	}
}

// rejectReason maps a failed name claim onto the reason sent to the client.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNameTooShort):
		return "too_short"
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrNameLocked):
		return "name_taken"
	default:
		return "invalid_format"
	}
}

func logf(cfg *Config, format string, args ...any) {
	if cfg == nil || !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
