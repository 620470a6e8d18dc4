package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"deal-service/internal/auth"
	"deal-service/internal/config"
	"deal-service/internal/editor"
	"deal-service/internal/version"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type EditorHandler struct {
	resources ResourceGetter
	versions  VersionResolver
	storage   ContentURLMinter
	builder   CapabilityBuilder
	verifier  CapabilityVerifier
	committer VersionCommitter
	docCfg    *config.DocServerConfig
	log       zerolog.Logger
}

func NewEditorHandler(
	resources ResourceGetter,
	versions VersionResolver,
	storage ContentURLMinter,
	builder CapabilityBuilder,
	verifier CapabilityVerifier,
	committer VersionCommitter,
	docCfg *config.DocServerConfig,
	log zerolog.Logger,
) *EditorHandler {
	return &EditorHandler{
		resources: resources,
		versions:  versions,
		storage:   storage,
		builder:   builder,
		verifier:  verifier,
		committer: committer,
		docCfg:    docCfg,
		log:       log.With().Str("component", "editor_handler").Logger(),
	}
}

type EditorConfigResponse struct {
	Config       editor.Config `json:"config"`
	Token        string        `json:"token"`
	DocServerURL string        `json:"docserver_url"`
}

// GetEditorConfig mints the signed capability a browser hands to the
// document server to open one version of one document. Pure read, nothing
// is persisted.
func (h *EditorHandler) GetEditorConfig(c echo.Context) error {
	// Signing secrets are checked before any lookup or network call.
	if h.docCfg.Secret == "" {
		return apperrors.Configuration(msgSecretsNotConfigured)
	}

	filePath := strings.TrimSpace(c.QueryParam(queryFilePath))
	if filePath == "" {
		return respondError(c, http.StatusBadRequest, msgFilePathRequired)
	}

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}
	orgID, err := auth.GetOrgID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	ver, err := h.versions.GetByStoragePath(ctx, filePath)
	if err != nil {
		return respondError(c, http.StatusNotFound, msgVersionNotFound)
	}

	res, err := h.resources.GetByID(ctx, ver.ResourceID)
	if err != nil {
		return respondError(c, http.StatusNotFound, msgResourceNotFound)
	}

	// The capability grants download and edit rights on the document, so
	// issuance is gated on the caller's org owning the resource. The bucket
	// is derived from the resource, never taken from the caller.
	if res.OrgID != orgID {
		return respondError(c, http.StatusForbidden, msgResourceAccessDenied)
	}

	// File-type gate runs before the content URL is minted, so an
	// unsupported document never gets a signed URL issued for it.
	fileInfo, err := editor.ResolveFileInfo(ver.StoragePath)
	if err != nil {
		return err
	}

	contentURL, err := h.storage.GeneratePresignedDownloadURL(ctx, res.OrgID.String(), ver.StoragePath)
	if err != nil {
		return apperrors.Upstream(msgContentURLMintFail, err)
	}

	signed, err := h.builder.Build(editor.BuildInput{
		Resource:   res,
		Version:    ver,
		File:       fileInfo,
		ContentURL: contentURL,
		Mode:       c.QueryParam(queryMode),
		UserID:     userID,
		UserName:   auth.GetUserEmail(c),
		GobackURL:  strings.TrimSpace(c.QueryParam(queryGobackURL)),
	})
	if err != nil {
		return apperrors.InternalServer(msgCapabilitySignFail, err)
	}

	return c.JSON(http.StatusOK, EditorConfigResponse{
		Config:       signed.Config,
		Token:        signed.Token,
		DocServerURL: h.docCfg.URL,
	})
}

// CallbackRequest mirrors the document server's save-callback payload.
// The document server adds fields across releases, so decoding is lenient.
type CallbackRequest struct {
	Status     int      `json:"status"`
	URL        string   `json:"url"`
	ChangesURL string   `json:"changesurl"`
	Key        string   `json:"key"`
	Users      []string `json:"users"`
	Token      string   `json:"token"`
}

// callbackAck is the wire format the document server expects: error 0
// acknowledges, anything else makes the editor surface a save failure.
func callbackAck(c echo.Context, status int, errCode int, message string) error {
	body := map[string]interface{}{jsonKeyError: errCode}
	if message != "" {
		body[jsonKeyMessage] = message
	}
	return c.JSON(status, body)
}

// DocumentCallback ingests editing-session lifecycle notifications and runs
// the version-commit pipeline for the persist-class statuses.
func (h *EditorHandler) DocumentCallback(c echo.Context) error {
	var req CallbackRequest
	if err := json.NewDecoder(io.LimitReader(c.Request().Body, decodeBodyLimit)).Decode(&req); err != nil {
		return callbackAck(c, http.StatusBadRequest, 1, msgInvalidRequestBody)
	}

	cfg, err := h.verifier.Verify(req.Token)
	if err != nil {
		return callbackAck(c, http.StatusUnauthorized, 1, msgInvalidCallbackToken)
	}

	status := editor.CallbackStatus(req.Status)
	switch status.Action() {
	case editor.ActionPersist:
		// fall through to the commit pipeline
	case editor.ActionIgnore:
		return callbackAck(c, http.StatusOK, 0, "")
	case editor.ActionErrorAck:
		h.log.Error().
			Str("status", status.String()).
			Str("key", req.Key).
			Msg("document server reported a save error")
		return callbackAck(c, http.StatusOK, 0, "")
	default:
		h.log.Warn().
			Int("status", req.Status).
			Str("key", req.Key).
			Msg("unrecognized callback status, acknowledging")
		return callbackAck(c, http.StatusOK, 0, "")
	}

	actorID, err := uuid.Parse(cfg.EditorConfig.User.ID)
	if err != nil || actorID == uuid.Nil {
		return callbackAck(c, http.StatusBadRequest, 1, msgMissingActingUser)
	}

	// Target identity comes from the query string stamped into the callback
	// URL at capability issuance, not from the token.
	rawResourceID := c.QueryParam(queryResourceID)
	if rawResourceID == "" {
		return callbackAck(c, http.StatusBadRequest, 1, msgResourceIDRequired)
	}
	resourceID, err := uuid.Parse(rawResourceID)
	if err != nil {
		return callbackAck(c, http.StatusBadRequest, 1, msgInvalidResourceID)
	}

	input := version.CommitInput{
		ResourceID: resourceID,
		ActorID:    actorID,
		ContentURL: req.URL,
	}
	if req.ChangesURL != "" {
		input.ChangesURL = &req.ChangesURL
	}

	result, err := h.committer.Commit(c.Request().Context(), input)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return callbackAck(c, http.StatusNotFound, 1, msgResourceNotFound)
		}
		h.log.Error().
			Err(err).
			Str("resource_id", resourceID.String()).
			Msg("version commit failed")
		return callbackAck(c, http.StatusInternalServerError, 1, msgSaveFailed)
	}

	if result.Duplicate {
		h.log.Info().
			Str("resource_id", resourceID.String()).
			Msg("duplicate save callback, content unchanged")
	}

	return callbackAck(c, http.StatusOK, 0, "")
}
