package config

import "errors"

var (
	ErrInvalidBaseURL = errors.New("api base url must be an http(s) URL")
	ErrInvalidWSURL   = errors.New("channel url must be a ws(s) URL")
)
