package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal/rate"
	"github.com/MrEthical07/goEnroll/middleware"
)

var documentFields = map[goEnroll.DocumentSide]string{
	goEnroll.DocumentFront: "idPhotoFront",
	goEnroll.DocumentBack:  "idPhotoBack",
	goEnroll.DocumentExtra: "idPhotoExtra",
}

func (c *Client) Register(ctx context.Context, req goEnroll.RegisterRequest) error {
	ctx = middleware.WithAnonymous(ctx)
	_, _, err := c.postJSON(ctx, rate.OpRegister, "/user/register", nil, req)
	return err
}

// Login returns the token from the token header, falling back to a JSON
// {"token": ...} body.
func (c *Client) Login(ctx context.Context, req goEnroll.LoginRequest) (goEnroll.LoginResponse, error) {
	ctx = middleware.WithAnonymous(ctx)
	resp, body, err := c.postJSON(ctx, rate.OpLogin, "/user/login", nil, req)
	if err != nil {
		var svcErr *goEnroll.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusForbidden {
			if redirect := loginRedirect(body, req.Username); redirect != nil {
				return goEnroll.LoginResponse{}, redirect
			}
		}
		return goEnroll.LoginResponse{}, err
	}

	token := strings.TrimSpace(resp.Header.Get(c.tokenHeader))
	if token == "" {
		var payload struct {
			Token string `json:"token"`
		}
		if json.Unmarshal(body, &payload) == nil {
			token = strings.TrimSpace(payload.Token)
		}
	}
	return goEnroll.LoginResponse{Token: token}, nil
}

// CompleteProfile accepts either a JSON body or a plain-text message.
func (c *Client) CompleteProfile(ctx context.Context, req goEnroll.CompleteProfileRequest) (goEnroll.CompleteProfileResponse, error) {
	query := url.Values{}
	query.Set("username", req.Username)
	query.Set("markAsComplete", strconv.FormatBool(req.MarkComplete))

	_, body, err := c.postJSON(ctx, rate.OpCompleteProfile, "/user/complete-profile", query, req.Details)
	if err != nil {
		return goEnroll.CompleteProfileResponse{}, err
	}

	var out goEnroll.CompleteProfileResponse
	if err := json.Unmarshal(body, &out); err != nil {
		out = goEnroll.CompleteProfileResponse{Message: strings.TrimSpace(string(body))}
	}
	if out.Username == "" {
		out.Username = req.Username
	}
	return out, nil
}

func (c *Client) VerifyIdentity(ctx context.Context, req goEnroll.VerifyIdentityRequest) (goEnroll.VerifyIdentityResponse, error) {
	payload, contentType, err := c.buildVerifyForm(ctx, req)
	if err != nil {
		return goEnroll.VerifyIdentityResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/user/verify-id", nil), payload)
	if err != nil {
		return goEnroll.VerifyIdentityResponse{}, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	_, body, err := c.send(ctx, rate.OpVerifyIdentity, httpReq)
	if err != nil {
		return goEnroll.VerifyIdentityResponse{}, err
	}

	var out goEnroll.VerifyIdentityResponse
	if err := json.Unmarshal(body, &out); err != nil {
		out = goEnroll.VerifyIdentityResponse{Message: strings.TrimSpace(string(body))}
	}
	return out, nil
}

// buildVerifyForm encodes the multipart form. A document that cannot be opened
// is reported as an invalid request so it never reaches the network.
func (c *Client) buildVerifyForm(ctx context.Context, req goEnroll.VerifyIdentityRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"username", req.Username},
		{"verificationToken", req.Ticket},
		{"recaptchaToken", req.ChallengeToken},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	for _, ref := range req.Documents {
		field, ok := documentFields[ref.Side]
		if !ok {
			return nil, "", &goEnroll.ServiceError{
				Kind:    goEnroll.ErrServiceInvalid,
				Message: "unknown document side " + string(ref.Side),
			}
		}
		if err := c.writeDocument(ctx, form, field, ref); err != nil {
			return nil, "", err
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return &buf, form.FormDataContentType(), nil
}

func (c *Client) writeDocument(ctx context.Context, form *multipart.Writer, field string, ref goEnroll.DocumentRef) error {
	doc, err := c.loader.Open(ctx, ref.Reference)
	if err != nil {
		return &goEnroll.ServiceError{
			Kind:    goEnroll.ErrServiceInvalid,
			Message: fmt.Sprintf("cannot open %s document", ref.Side),
			Err:     err,
		}
	}
	defer doc.Body.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, doc.Filename))
	header.Set("Content-Type", doc.ContentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, doc.Body)
	return err
}
