package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/knowledgenexus/forum/config"
	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

type oauthProviders struct {
	configs map[string]*oauth2.Config
}

func newOAuthProviders(cfg config.AppConfig) *oauthProviders {
	p := &oauthProviders{configs: map[string]*oauth2.Config{}}
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		p.configs["github"] = &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  base + "/api/auth/oauth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		p.configs["google"] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  base + "/api/auth/oauth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}
	}
	return p
}

func (p *oauthProviders) get(provider string) (*oauth2.Config, bool) {
	c, ok := p.configs[strings.ToLower(provider)]
	return c, ok
}

// OAuthRedirect returns the provider authorization URL with a single-use state token.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, ok := a.oauth.get(ctx.Param("provider"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "unsupported or unconfigured provider")
		return
	}
	state := uuid.NewString()
	a.states.Save(ctx.Request.Context(), state)
	utils.Success(ctx, gin.H{"authorizationUrl": cfg.AuthCodeURL(state), "state": state})
}

// OAuthCallback exchanges the authorization code for a provider identity and issues a token.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !a.states.Consume(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}
	cfg, ok := a.oauth.get(provider)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "unsupported or unconfigured provider")
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}
	profile, err := fetchOAuthProfile(reqCtx, provider, cfg.Client(reqCtx, token))
	if err != nil {
		utils.Fail(ctx, utils.Internal(50005, "failed to load provider profile", err))
		return
	}
	user, err := a.users.OAuthLogin(reqCtx, *profile)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	a.issue(ctx, http.StatusOK, user)
}

func fetchOAuthProfile(ctx context.Context, provider string, client *http.Client) (*services.OAuthProfile, error) {
	switch provider {
	case "github":
		var payload struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
			return nil, err
		}
		email, _ := fetchGitHubEmail(ctx, client)
		return &services.OAuthProfile{
			Provider:   provider,
			ProviderID: fmt.Sprintf("%d", payload.ID),
			Username:   payload.Login,
			Email:      email,
			AvatarURL:  payload.AvatarURL,
		}, nil
	case "google":
		var payload struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		}
		if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
			return nil, err
		}
		username := payload.Email
		if i := strings.IndexByte(username, '@'); i > 0 {
			username = username[:i]
		}
		return &services.OAuthProfile{
			Provider:   provider,
			ProviderID: payload.ID,
			Username:   username,
			Email:      payload.Email,
			AvatarURL:  payload.Picture,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
