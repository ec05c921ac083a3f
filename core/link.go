package core

import (
	"net/url"
	"strings"
)

// LinkType is the discriminator carried by a confirmation link (`type=`).
type LinkType string

const (
	LinkSignup   LinkType = "signup"
	LinkRecovery LinkType = "recovery"
	LinkEmail    LinkType = "email"
	LinkUnknown  LinkType = "unknown"
)

// ParseLinkType maps a raw `type` value onto the recognised set.
// Anything else (including the provider's invite/magiclink/email_change) is LinkUnknown.
func ParseLinkType(raw string) LinkType {
	switch LinkType(strings.ToLower(strings.TrimSpace(raw))) {
	case LinkSignup:
		return LinkSignup
	case LinkRecovery:
		return LinkRecovery
	case LinkEmail:
		return LinkEmail
	default:
		return LinkUnknown
	}
}

// ParamSource records which part of the link supplied the parameters.
type ParamSource string

const (
	SourceNone     ParamSource = "none"
	SourceQuery    ParamSource = "query"
	SourceFragment ParamSource = "fragment"
)

// ProviderRedirectError is the error the provider encodes into the redirect
// itself (error, error_code, error_description) when a link is already expired
// or consumed.
type ProviderRedirectError struct {
	Code        string
	Description string
}

func (e *ProviderRedirectError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// LinkParameters is the parsed view of a confirmation link. It is a value type
// and is never modified after ParseLink returns it.
type LinkParameters struct {
	Token        string
	RefreshToken string
	Type         LinkType
	RawType      string
	Source       ParamSource
	// ProviderError is set when the link carries the provider's error redirect instead of a token.
	ProviderError *ProviderRedirectError
}

func (p LinkParameters) HasToken() bool { return p.Token != "" }

var tokenKeys = []string{"token_hash", "token", "access_token"}

type linkSource struct {
	token, refresh, rawType string
	perr                    *ProviderRedirectError
}

func readSource(raw string, prefix byte) linkSource {
	raw = strings.TrimSpace(raw)
	if raw != "" && raw[0] == prefix {
		raw = raw[1:]
	}
	if raw == "" {
		return linkSource{}
	}
	// ParseQuery keeps every pair it could decode and reports the first bad one;
	// malformed pairs are simply dropped.
	vals, _ := url.ParseQuery(raw)
	var src linkSource
	for _, k := range tokenKeys {
		if v := strings.TrimSpace(vals.Get(k)); v != "" {
			src.token = v
			break
		}
	}
	src.refresh = strings.TrimSpace(vals.Get("refresh_token"))
	src.rawType = strings.TrimSpace(vals.Get("type"))
	code := strings.TrimSpace(vals.Get("error_code"))
	if code == "" {
		code = strings.TrimSpace(vals.Get("error"))
	}
	if code != "" {
		src.perr = &ProviderRedirectError{Code: code, Description: strings.TrimSpace(vals.Get("error_description"))}
	}
	return src
}

// ParseLink extracts LinkParameters from a query string and a fragment.
//
// The query string is consulted first and the fragment second. The first source
// that carries a token supplies token, type and refresh token together; sources
// are never mixed. Without any token the type (query first) and a provider error
// redirect are still reported.
func ParseLink(query, fragment string) LinkParameters {
	q := readSource(query, '?')
	f := readSource(fragment, '#')

	pick := func(src linkSource, from ParamSource) LinkParameters {
		return LinkParameters{
			Token:         src.token,
			RefreshToken:  src.refresh,
			Type:          ParseLinkType(src.rawType),
			RawType:       src.rawType,
			Source:        from,
			ProviderError: src.perr,
		}
	}

	switch {
	case q.token != "":
		return pick(q, SourceQuery)
	case f.token != "":
		return pick(f, SourceFragment)
	}

	out := LinkParameters{Type: LinkUnknown, Source: SourceNone}
	switch {
	case q.perr != nil:
		out = pick(q, SourceQuery)
	case f.perr != nil:
		out = pick(f, SourceFragment)
	case q.rawType != "":
		out = pick(q, SourceQuery)
	case f.rawType != "":
		out = pick(f, SourceFragment)
	}
	out.Token, out.RefreshToken = "", ""
	return out
}

// ParseLinkURL parses a full link (https://host/path?query#fragment).
// An unparsable URL yields empty parameters.
func ParseLinkURL(raw string) LinkParameters {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return LinkParameters{Type: LinkUnknown, Source: SourceNone}
	}
	frag := u.EscapedFragment()
	return ParseLink(u.RawQuery, frag)
}
