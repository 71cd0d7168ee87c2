package utils

import (
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const draftApplicationKey = "draft_application_id"

// SaveDraftApplication remembers the applicant's in-progress application in the session cookie
func SaveDraftApplication(c *gin.Context, applicationID uint) error {
	session := sessions.Default(c)
	session.Set(draftApplicationKey, applicationID)
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %v", err)
	}
	return nil
}

// DraftApplicationID returns the application id stored by SaveDraftApplication
func DraftApplicationID(c *gin.Context) (uint, bool) {
	session := sessions.Default(c)
	id, ok := session.Get(draftApplicationKey).(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// ClearDraftApplication forgets the draft once payment has been recorded
func ClearDraftApplication(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(draftApplicationKey)
	if err := session.Save(); err != nil {
		LogWarn("Failed to clear draft application from session: %v", err)
	}
}
