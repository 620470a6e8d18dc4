package editor

import (
	"fmt"
	"net/url"

	"deal-service/internal/domain/resource"

	"github.com/google/uuid"
)

const (
	modeEdit = "edit"
	modeView = "view"

	defaultLang   = "en"
	defaultWidth  = "100%"
	defaultHeight = "100%"
	embedType     = "desktop"

	callbackPath      = "/api/documents/callback"
	queryParamResID   = "resource_id"
	queryParamBucket  = "bucket"
)

// ConfigBuilder assembles signed capability configs for the document server.
type ConfigBuilder struct {
	tokens  *TokenService
	siteURL string
}

func NewConfigBuilder(tokens *TokenService, siteURL string) *ConfigBuilder {
	return &ConfigBuilder{tokens: tokens, siteURL: siteURL}
}

type BuildInput struct {
	Resource   *resource.Resource
	Version    *resource.Version
	File       *FileInfo
	ContentURL string
	Mode       string
	UserID     uuid.UUID
	UserName   string
	GobackURL  string
}

// SignedConfig is the capability config plus its signature, both consumed by
// the document server.
type SignedConfig struct {
	Config Config `json:"config"`
	Token  string `json:"token"`
}

// Build constructs the capability for one open of one version. The resulting
// token is ephemeral and never persisted.
func (b *ConfigBuilder) Build(in BuildInput) (*SignedConfig, error) {
	mode := in.Mode
	if mode != modeEdit && mode != modeView {
		mode = modeView
	}

	cfg := Config{
		Document: Document{
			FileType: in.File.Extension,
			Key:      cacheKey(in.Version),
			Title:    in.File.Name,
			URL:      in.ContentURL,
			Permissions: Permissions{
				Edit:     mode == modeEdit,
				Download: true,
				Print:    true,
			},
		},
		DocumentType: in.File.DocumentType,
		EditorConfig: EditorConfig{
			Mode:        mode,
			Lang:        defaultLang,
			CallbackURL: b.callbackURL(in.Resource),
			User: User{
				ID:   in.UserID.String(),
				Name: in.UserName,
			},
			Customization: Customization{
				Autosave:  true,
				Forcesave: true,
				Goback:    Goback{URL: in.GobackURL},
			},
		},
		Width:  defaultWidth,
		Height: defaultHeight,
		Type:   embedType,
	}

	token, err := b.tokens.Sign(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign capability config: %w", err)
	}

	return &SignedConfig{Config: cfg, Token: token}, nil
}

// cacheKey identifies the rendering the document server may cache. It folds
// in the version row's last update time: stable while the version is
// unchanged (repeat opens hit the cache), guaranteed different once a save
// finalizes the row, so a fresh rendering is always fetched after an edit.
func cacheKey(v *resource.Version) string {
	return fmt.Sprintf("%s_%d_%d", v.ResourceID, v.VersionNumber, v.UpdatedAt.Unix())
}

// callbackURL embeds the resource id at issuance time; the save callback
// trusts the query string, not the token, for target identity.
func (b *ConfigBuilder) callbackURL(res *resource.Resource) string {
	q := url.Values{}
	q.Set(queryParamResID, res.ID.String())
	q.Set(queryParamBucket, res.OrgID.String())
	return b.siteURL + callbackPath + "?" + q.Encode()
}
