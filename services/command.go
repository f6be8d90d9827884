package services

import (
	"strings"

	"Mikrotik-Dashboard/errs"
)

// Raw commands are limited to read-only verbs.
var readOnlyVerbs = map[string]bool{
	"print":  true,
	"getall": true,
}

// monitor commands stream forever unless asked for a single sample.
var monitorVerbs = map[string]bool{
	"monitor":         true,
	"monitor-traffic": true,
}

// ParseCommand splits a raw command into an API path and its words. Both the
// API form ("/ip/address/print ?interface=ether1") and the console form
// ("/ip address print") are accepted.
func ParseCommand(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, errs.New(errs.Validation, "command is required")
	}
	if !strings.HasPrefix(fields[0], "/") {
		return "", nil, errs.New(errs.Validation, "command must start with '/'")
	}

	segments := []string{strings.Trim(fields[0], "/")}
	rest := fields[1:]
	for len(rest) > 0 && !strings.ContainsAny(rest[0], "=?") {
		segments = append(segments, rest[0])
		rest = rest[1:]
	}
	path := "/" + strings.Join(segments, "/")
	path = strings.ReplaceAll(path, "//", "/")

	params := make([]string, 0, len(rest))
	for _, w := range rest {
		if !strings.HasPrefix(w, "=") && !strings.HasPrefix(w, "?") {
			return "", nil, errs.Newf(errs.Validation, "invalid argument %q: must start with '=' or '?'", w)
		}
		if w == "=file" || strings.HasPrefix(w, "=file=") {
			return "", nil, errs.New(errs.Validation, "the file argument is not allowed: it writes to router storage")
		}
		params = append(params, w)
	}

	verb := path[strings.LastIndex(path, "/")+1:]
	switch {
	case readOnlyVerbs[verb]:
	case monitorVerbs[verb]:
		if !hasOnce(params) {
			params = append(params, "=once=")
		}
	default:
		return "", nil, errs.Newf(errs.Validation, "command %q is not allowed: only print, getall and monitor are permitted", verb)
	}

	return path, params, nil
}

func hasOnce(params []string) bool {
	for _, p := range params {
		if strings.HasPrefix(p, "=once=") {
			return true
		}
	}
	return false
}
