package checkin

// DefaultToken is the secret printed in the centre's sign-in QR code.
const DefaultToken = "vibrant-aging-attendance-app:auth-v1"

// Verifier checks decoded QR text against the expected token.
type Verifier struct {
	token string
}

// NewVerifier returns a verifier for token.
func NewVerifier(token string) Verifier {
	return Verifier{token: token}
}

// Verify reports whether text is exactly the expected token.
func (v Verifier) Verify(text string) bool {
	return v.token != "" && text == v.token
}

// Token returns the expected token, e.g. for rendering the QR image.
func (v Verifier) Token() string { return v.token }
