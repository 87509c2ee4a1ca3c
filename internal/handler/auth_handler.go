package handler

import (
	"errors"
	"net/http"
	"time"

	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const refreshCookieName = "refresh"

type AuthHandler struct {
	registerUC   *auth.RegisterUserUsecase // 会員登録usecase
	loginUC      *auth.LoginUsecase        // ログインusecase
	refreshUC    *auth.RefreshUsecase
	logoutUC     *auth.LogoutUsecase
	refreshTTL   time.Duration // refresh cookie の有効期限
	cookieSecure bool
	log          *logrus.Logger
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	refreshUC *auth.RefreshUsecase,
	logoutUC *auth.LogoutUsecase,
	refreshTTL time.Duration,
	cookieSecure bool,
	log *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		registerUC:   registerUC,
		loginUC:      loginUC,
		refreshUC:    refreshUC,
		logoutUC:     logoutUC,
		refreshTTL:   refreshTTL,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.POST("/logout", h.logout)
}

// /auth/register, /auth/login のリクエストボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// cookieが使えないクライアントはbodyで送る
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ログイン・リフレッシュの応答
type SessionResponse struct {
	auth.LoginOutput
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.writeAuthError(c, err)
	}

	return c.JSON(http.StatusCreated, out.User)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, side, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return h.writeAuthError(c, err)
	}

	h.setRefreshCookie(c, side.PlainRefreshToken)
	return c.JSON(http.StatusOK, SessionResponse{LoginOutput: out, RefreshToken: side.PlainRefreshToken})
}

func (h *AuthHandler) refresh(c echo.Context) error {
	out, side, err := h.refreshUC.Execute(c.Request().Context(), auth.RefreshInput{
		RefreshToken: h.refreshTokenFrom(c),
		UserAgent:    c.Request().UserAgent(),
	})
	if err != nil {
		return h.writeAuthError(c, err)
	}

	h.setRefreshCookie(c, side.PlainRefreshToken)
	return c.JSON(http.StatusOK, SessionResponse{LoginOutput: out, RefreshToken: side.PlainRefreshToken})
}

func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.logoutUC.Execute(c.Request().Context(), h.refreshTokenFrom(c)); err != nil {
		return h.writeAuthError(c, err)
	}

	//cookie削除
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		MaxAge:   -1,
	})
	return c.NoContent(http.StatusNoContent)
}

// bodyを優先し、なければcookie
func (h *AuthHandler) refreshTokenFrom(c echo.Context) string {
	var req refreshRequest
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		return ck.Value
	}
	return ""
}

// refreshtoken をCookieにセット。
func (h *AuthHandler) setRefreshCookie(c echo.Context, plainRefresh string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plainRefresh,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

func (h *AuthHandler) writeAuthError(c echo.Context, err error) error {
	switch {
	case validator.IsInputError(err):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrRefreshTokenReused):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrUserInactive):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	default:
		h.log.WithError(err).Error("auth request failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
