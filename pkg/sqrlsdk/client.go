package sqrlsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client talks to a SQRL login service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RequestNut asks for a fresh nut for path.
func (c *Client) RequestNut(ctx context.Context, path string) (*NutResponse, error) {
	var out NutResponse
	if err := c.postJSON(ctx, "/sqrl/nut", "", NutRequest{Path: path}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginOptions tunes a Login call.
type LoginOptions struct {
	// Register sends SUK and VUK so an unknown identity can be created.
	Register bool
	// WantSUK asks the server to return the stored SUK.
	WantSUK bool
}

// Login signs and sends the ident command for nut.
func (c *Client) Login(ctx context.Context, id *Identity, nut, path string, opts LoginOptions) (*LoginResponse, error) {
	req := LoginRequest{
		Nut:       nut,
		Path:      path,
		IDK:       id.IDK(),
		Signature: id.Sign(CmdIdent, nut, path),
		WantSUK:   opts.WantSUK,
	}
	if opts.Register {
		req.SUK = id.SUK()
		req.VUK = id.VUK()
	}

	var out LoginResponse
	if err := c.postJSON(ctx, "/sqrl/login", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// PollAsk returns the state of the question attached to nut.
func (c *Client) PollAsk(ctx context.Context, nut string) (*AskStatusResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/sqrl/ask/"+nut, nil, nil)
	if err != nil {
		return nil, err
	}

	var out AskStatusResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnswerAsk submits the pressed button for nut's question.
func (c *Client) AnswerAsk(ctx context.Context, nut string, button int) error {
	return c.postJSON(ctx, "/sqrl/ask/"+nut, "", AskAnswerRequest{Button: button}, nil, http.StatusAccepted)
}

// IdentityCommand sends a pre-built identity command. Most callers want
// Disable, Enable, Remove or Rekey instead.
func (c *Client) IdentityCommand(ctx context.Context, cmd Command, req IdentityCommandRequest) (*IdentityCommandResponse, error) {
	var out IdentityCommandResponse
	if err := c.postJSON(ctx, "/sqrl/identity/"+string(cmd), "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) baseCommand(id *Identity, cmd Command, nut, path string) IdentityCommandRequest {
	req := IdentityCommandRequest{
		Nut:       nut,
		Path:      path,
		IDK:       id.IDK(),
		Signature: id.Sign(cmd, nut, path),
		SUK:       id.SUK(),
		VUK:       id.VUK(),
	}
	if cmd.NeedsUnlock() {
		req.URS = id.SignUnlock(cmd, nut, path)
	}
	return req
}

// Disable locks id's account. No unlock signature is needed.
func (c *Client) Disable(ctx context.Context, id *Identity, nut, path string) (*IdentityCommandResponse, error) {
	return c.IdentityCommand(ctx, CmdDisable, c.baseCommand(id, CmdDisable, nut, path))
}

// Enable unlocks id's account.
func (c *Client) Enable(ctx context.Context, id *Identity, nut, path string) (*IdentityCommandResponse, error) {
	return c.IdentityCommand(ctx, CmdEnable, c.baseCommand(id, CmdEnable, nut, path))
}

// Remove deletes id's account.
func (c *Client) Remove(ctx context.Context, id *Identity, nut, path string) (*IdentityCommandResponse, error) {
	return c.IdentityCommand(ctx, CmdRemove, c.baseCommand(id, CmdRemove, nut, path))
}

// Rekey moves the account held by old to next.
func (c *Client) Rekey(ctx context.Context, old, next *Identity, nut, path string) (*IdentityCommandResponse, error) {
	req := c.baseCommand(old, CmdRekey, nut, path)
	req.NewIDK = next.IDK()
	req.NewSUK = next.SUK()
	req.NewVUK = next.VUK()
	req.NewSignature = next.Sign(CmdRekey, nut, path)
	return c.IdentityCommand(ctx, CmdRekey, req)
}

// GetSession describes the session behind ticket.
func (c *Client) GetSession(ctx context.Context, ticket string) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/session", nil, bearer(ticket))
	if err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminLock locks userID. ticket must carry the admin role.
func (c *Client) AdminLock(ctx context.Context, ticket, userID string) (*AdminIdentityResponse, error) {
	var out AdminIdentityResponse
	err := c.postJSON(ctx, "/v1/admin/identities/"+userID+"/lock", ticket, struct{}{}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUnlock unlocks userID. ticket must carry the admin role.
func (c *Client) AdminUnlock(ctx context.Context, ticket, userID string) (*AdminIdentityResponse, error) {
	var out AdminIdentityResponse
	err := c.postJSON(ctx, "/v1/admin/identities/"+userID+"/unlock", ticket, struct{}{}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSigningKeys lists the ticket signing keys. ticket must carry the admin
// role.
func (c *Client) ListSigningKeys(ctx context.Context, ticket string) ([]SigningKeyInfo, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/admin/keys", nil, bearer(ticket))
	if err != nil {
		return nil, err
	}

	var out []SigningKeyInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// RotateSigningKey activates a new ticket signing key. ticket must carry the
// admin role.
func (c *Client) RotateSigningKey(ctx context.Context, ticket string, retireExisting bool) (*RotateKeyResponse, error) {
	var out RotateKeyResponse
	req := RotateKeyRequest{RetireExisting: retireExisting}
	if err := c.postJSON(ctx, "/v1/admin/keys/rotate", ticket, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetireSigningKey stops kid from signing new tickets. ticket must carry the
// admin role.
func (c *Client) RetireSigningKey(ctx context.Context, ticket, kid string) error {
	return c.postJSON(ctx, "/v1/admin/keys/"+kid+"/retire", ticket, struct{}{}, nil, http.StatusNoContent)
}

// GetJWKS retrieves the ticket verification keys.
func (c *Client) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var out JWKSResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
