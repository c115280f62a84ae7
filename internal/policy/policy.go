// Package policy classifies request paths into validation policies.
package policy

import "strings"

// Policy is the validation applied to a request before it is forwarded.
type Policy int

const (
	// Token validates the caller's bearer token and forwards the headers
	// returned by the validator.
	Token Policy = iota
	// Signature validates a signature over the raw body and path.
	Signature
	// None forwards without validation.
	None
)

func (p Policy) String() string {
	switch p {
	case Signature:
		return "signature"
	case None:
		return "none"
	default:
		return "token"
	}
}

// DefaultSignatureFragments are the money-transfer path fragments that
// require signature validation.
var DefaultSignatureFragments = []string{
	"/transaction/add-money/ng",
	"/transaction/add-money/other-bank",
}

// DefaultPublicPaths are the endpoints forwarded without validation.
var DefaultPublicPaths = []string{
	"/idp/auth/login",
	"/idp/notif",
	"/idp/notif/verify",
	"/idp/member/forgot-password",
	"/idp/member/forgot-password/otp",
	"/idp/member/register/pro",
	"/idp/member/set-pin/pro",
	"/idp/member/register/lite",
	"/idp/member/set-mpin/lite",
	"/idp/member/check",
	"/notification/otp/send",
	"/notification/otp/verify",
}

// Classifier maps a request path to a Policy. It is immutable after construction.
type Classifier struct {
	fragments []string
	public    map[string]struct{}
}

// NewClassifier creates a Classifier. Empty arguments fall back to the defaults.
func NewClassifier(fragments, publicPaths []string) *Classifier {
	if len(fragments) == 0 {
		fragments = DefaultSignatureFragments
	}
	if len(publicPaths) == 0 {
		publicPaths = DefaultPublicPaths
	}

	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return &Classifier{
		fragments: append([]string(nil), fragments...),
		public:    public,
	}
}

// Classify returns the policy for path. Signature fragments are checked
// first, then public paths; everything else requires a token.
func (c *Classifier) Classify(path string) Policy {
	for _, f := range c.fragments {
		if strings.Contains(path, f) {
			return Signature
		}
	}
	if _, ok := c.public[path]; ok {
		return None
	}
	return Token
}

// Sizes returns the number of signature fragments and public paths in use.
func (c *Classifier) Sizes() (fragments, public int) {
	return len(c.fragments), len(c.public)
}
