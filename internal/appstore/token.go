package appstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"iapnotify/internal/types"
)

// segmentParser is only used for its segment decoder. Padding is tolerated
// because some producers emit padded base64url.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// stdToURL maps the standard base64 alphabet onto base64url so both spellings
// decode.
var stdToURL = strings.NewReplacer("+", "-", "/", "_")

// DecodeToken decodes the payload segment of a compact JWS without verifying
// its signature. Any structural problem yields an error matching
// types.ErrMalformedToken.
func DecodeToken(token string) (Claims, error) {
	if !strings.Contains(token, ".") {
		return nil, types.NewAppError(types.ErrCodeTokenMalformed, "token has no payload segment", nil)
	}

	segment := strings.Split(token, ".")[1]
	raw, err := segmentParser.DecodeSegment(stdToURL.Replace(segment))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeTokenMalformed, "payload segment is not base64url", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var claims Claims
	if err := dec.Decode(&claims); err != nil {
		return nil, types.NewAppError(types.ErrCodeTokenMalformed, "payload segment is not a JSON object", err)
	}
	if claims == nil {
		return nil, types.NewAppError(types.ErrCodeTokenMalformed, "payload segment is not a JSON object", nil)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return nil, types.NewAppError(types.ErrCodeTokenMalformed, "payload segment has trailing data after the JSON object", err)
	}
	return claims, nil
}
