package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ReviewAccessClaims is the payload of a one-time review access code. The
// code lets a reviewer reach their assignment (and its opting form) without a
// platform session, so it is scoped to a single assignment.
type ReviewAccessClaims struct {
	AssignmentID uint `json:"assignment_id"`
	jwt.RegisteredClaims
}

func accessCodeSecret() []byte {
	return []byte(os.Getenv("ACCESS_CODE_SECRET"))
}

// IssueReviewAccessCode signs an access code for one review assignment.
func IssueReviewAccessCode(assignmentID uint, ttl time.Duration) (string, error) {
	claims := ReviewAccessClaims{
		AssignmentID: assignmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(accessCodeSecret())
}

// ParseReviewAccessCode verifies an access code and returns its claims.
func ParseReviewAccessCode(code string) (*ReviewAccessClaims, error) {
	token, err := jwt.ParseWithClaims(code, &ReviewAccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return accessCodeSecret(), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired access code")
	}
	claims, ok := token.Claims.(*ReviewAccessClaims)
	if !ok {
		return nil, errors.New("invalid access code claims")
	}
	return claims, nil
}

// ReviewerAccessRequired accepts either an access code (query or header) or a
// reviewer id supplied by the platform, and stores what it found in the
// context. Requests with neither are rejected.
func ReviewerAccessRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("access_code")
		if code == "" {
			code = strings.TrimPrefix(c.GetHeader("X-Access-Code"), " ")
		}
		if code != "" {
			claims, err := ParseReviewAccessCode(code)
			if err != nil {
				c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired access code"})
				c.Abort()
				return
			}
			c.Set("accessAssignmentID", claims.AssignmentID)
			c.Next()
			return
		}

		if reviewerID := c.GetHeader("X-Reviewer-ID"); reviewerID != "" {
			c.Set("reviewerID", reviewerID)
			c.Next()
			return
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Reviewer identity or access code required"})
		c.Abort()
	}
}
