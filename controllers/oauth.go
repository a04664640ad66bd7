package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/utils"
)

const oauthStateTTL = 10 * time.Minute

var oauthStates = utils.NewOneTimeStore("oauth:state:", oauthStateTTL)

type oauthIdentity struct {
	ID       string
	Username string
	Email    string
}

type oauthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	decode      func(io.Reader) (*oauthIdentity, error)
}

func oauthProviderFor(name string) (*oauthProvider, error) {
	cfg := config.Get()
	name = strings.ToLower(name)
	redirect := fmt.Sprintf("%s/api/v1/auth/oauth/%s/callback", cfg.OAuthCallbackBase(), name)

	switch name {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauthProvider{
			name: name,
			config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  redirect,
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			userInfoURL: "https://api.github.com/user",
			decode:      decodeGitHubUser,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauthProvider{
			name: name,
			config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  redirect,
				Scopes:       []string{"openid", "profile", "email"},
				Endpoint:     google.Endpoint,
			},
			userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			decode:      decodeGoogleUser,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// fetchIdentity calls the provider's user endpoint with the access token.
func (p *oauthProvider) fetchIdentity(ctx context.Context, token *oauth2.Token) (*oauthIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s user info request failed: %s", p.name, resp.Status)
	}

	identity, err := p.decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s user: %w", p.name, err)
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("%s user has no id", p.name)
	}
	return identity, nil
}

func decodeGitHubUser(r io.Reader) (*oauthIdentity, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, err
	}
	id := ""
	if payload.ID > 0 {
		id = strconv.FormatInt(payload.ID, 10)
	}
	return &oauthIdentity{ID: id, Username: payload.Login, Email: payload.Email}, nil
}

func decodeGoogleUser(r io.Reader) (*oauthIdentity, error) {
	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, err
	}
	username := payload.Email
	if i := strings.IndexByte(username, '@'); i > 0 {
		username = username[:i]
	}
	if username == "" {
		username = payload.Name
	}
	return &oauthIdentity{ID: payload.ID, Username: username, Email: payload.Email}, nil
}

// oauthUsername turns a provider login into a local username.
func oauthUsername(raw, provider, id string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if len(name) > 48 {
		name = name[:48]
	}
	if len(name) < 3 {
		name = provider + "-" + id
	}
	return name
}

// OAuthRedirect returns the provider's authorization URL with a fresh state.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider, err := oauthProviderFor(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	if err := oauthStates.Put(state, provider.name); err != nil {
		utils.Logger.Error("store oauth state", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to start sign-in")
		return
	}
	utils.Success(ctx, gin.H{
		"authorization_url": provider.config.AuthCodeURL(state),
		"state":             state,
	})
}

// OAuthCallback exchanges the authorization code, links or creates the account and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider, err := oauthProviderFor(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	code, state := ctx.Query("code"), ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if owner, ok := oauthStates.Take(state); !ok || owner != provider.name {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := provider.config.Exchange(reqCtx, code)
	if err != nil {
		utils.Sugar.Warnf("oauth exchange provider=%s err=%v", provider.name, err)
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	identity, err := provider.fetchIdentity(reqCtx, token)
	if err != nil {
		utils.Sugar.Warnf("oauth user info provider=%s err=%v", provider.name, err)
		utils.Error(ctx, http.StatusBadGateway, 50202, "failed to load provider account")
		return
	}

	user, err := a.users.FindOrCreateExternal(reqCtx, provider.name, identity.ID,
		oauthUsername(identity.Username, provider.name, identity.ID), identity.Email)
	if err != nil {
		utils.Sugar.Errorf("oauth user provider=%s id=%s: %v", provider.name, identity.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": jwtToken, "user": userResponse(*user)})
}
