package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Locale    string `json:"locale"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Customer     *domain.Customer `json:"customer"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	Merge        *mergeSummary    `json:"merge,omitempty"`
}

type mergeSummary struct {
	CartItemsMerged      int  `json:"cartItemsMerged"`
	FavoritesTransferred int  `json:"favoritesTransferred"`
	AlreadyMerged        bool `json:"alreadyMerged"`
}

// issueDeviceHandler hands a fresh anonymous device token to a new
// browser. Everything anonymous hangs off the device id inside it.
func issueDeviceHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, deviceID, err := deps.Identity.IssueDevice(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"deviceToken": token, "deviceId": deviceID})
	}
}

func signupHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		res, err := deps.Accounts.Signup(c.Request.Context(), customersvc.SignupInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Locale:    req.Locale,
		}, requestDeviceID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toAuthResponse(res))
	}
}

func loginHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}

		res, err := deps.Accounts.Login(c.Request.Context(), req.Email, req.Password, requestDeviceID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toAuthResponse(res))
	}
}

func refreshHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			badRequest(c, "refreshToken required")
			return
		}

		access, err := deps.Identity.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accessToken": access})
	}
}

func logoutHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		if err := deps.Accounts.Logout(c.Request.Context(), id.CustomerID); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// requestDeviceID picks up the anonymous device whose state should merge
// into the account on login. The browser authenticates the call with its
// device token, so the identity middleware already resolved it.
func requestDeviceID(c *gin.Context) string {
	if id, ok := currentIdentity(c); ok && id.Kind == domain.IdentityAnonymous {
		return id.DeviceID
	}
	return ""
}

func toAuthResponse(res *customersvc.AuthResult) authResponse {
	out := authResponse{
		Customer:     res.Customer,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
	if res.Merge != nil {
		out.Merge = &mergeSummary{
			CartItemsMerged:      res.Merge.CartItemsMerged,
			FavoritesTransferred: res.Merge.FavoritesTransferred,
			AlreadyMerged:        res.Merge.CartSkipped && res.Merge.FavoritesSkipped,
		}
	}
	return out
}
