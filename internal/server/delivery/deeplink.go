package delivery

import "strings"

// Deep-link payloads are the only state carried through a messenger "start"
// link. Two shapes exist: a bare public code addressing a user, and a reply
// token prefixed with "r_".
const replyPrefix = "r_"

// ReplyPayload wraps a reply-token hash into a deep-link payload.
func ReplyPayload(hash string) string {
	return replyPrefix + hash
}

// ParsePayload splits a deep-link payload into its kind. Exactly one of the
// return values is non-empty; both empty means the payload is unrecognized
// and the caller should fall back to a plain start.
func ParsePayload(payload string) (code string, replyHash string) {
	if payload == "" {
		return "", ""
	}
	if strings.HasPrefix(payload, replyPrefix) {
		h := strings.TrimPrefix(payload, replyPrefix)
		if h == "" {
			return "", ""
		}
		return "", h
	}
	return payload, ""
}
