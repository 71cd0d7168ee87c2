package controllers

import (
	"errors"
	"fmt"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetMySubscriptions lists the caller's memberships with their cards
func GetMySubscriptions(c *gin.Context) {
	utils.LogInfo("GetMySubscriptions called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var subs []models.Subscription
	if err := config.DB.Preload("Plan", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).
		Where("user_id = ?", user.ID).Order("created_at DESC").Find(&subs).Error; err != nil {
		utils.LogError("Failed to list subscriptions for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch subscriptions", err.Error())
		return
	}

	var cards []models.DigitalCard
	if err := config.DB.Where("is_template = ? AND user_id = ?", false, user.ID).Find(&cards).Error; err != nil {
		utils.LogError("Failed to list cards for user %d: %v", user.ID, err)
	}
	cardBySub := make(map[uint]*models.DigitalCard, len(cards))
	for i := range cards {
		if cards[i].SubscriptionID != nil {
			cardBySub[*cards[i].SubscriptionID] = &cards[i]
		}
	}

	list := make([]gin.H, 0, len(subs))
	for i := range subs {
		item := subscriptionResponse(&subs[i])
		item["card"] = cardResponse(cardBySub[subs[i].ID])
		list = append(list, item)
	}
	utils.Success(c, "Subscriptions retrieved successfully", gin.H{"subscriptions": list})
}

// loadCardForRequest loads the subscription and its card for the member or the plan owner.
// A missing card on an active subscription is provisioned on demand.
func loadCardForRequest(c *gin.Context) (*models.DigitalCard, bool) {
	user, ok := requireUser(c)
	if !ok {
		return nil, false
	}
	subID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	var sub models.Subscription
	if err := config.DB.Preload("Plan", func(q *gorm.DB) *gorm.DB { return q.Unscoped() }).First(&sub, subID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, utils.ErrSubscriptionMissing)
			return nil, false
		}
		utils.InternalServerError(c, "Failed to load subscription", err.Error())
		return nil, false
	}
	if sub.UserID != user.ID && !canManagePlan(user, &sub.Plan) {
		utils.LogError("User %d requested card of subscription %d", user.ID, sub.ID)
		utils.Forbidden(c, "You do not have access to this card")
		return nil, false
	}
	if sub.Status != models.SubscriptionStatusActive {
		utils.BadRequest(c, fmt.Sprintf("Subscription is %s; cards are issued to active members", sub.Status), nil)
		return nil, false
	}

	card, err := utils.ProvisionDigitalCard(config.DB, &sub, &sub.Plan)
	if err != nil {
		utils.LogError("Failed to provision card for subscription %d: %v", sub.ID, err)
		utils.InternalServerError(c, "Failed to load digital card", err.Error())
		return nil, false
	}
	return card, true
}

// GetSubscriptionCard returns the digital card as JSON
func GetSubscriptionCard(c *gin.Context) {
	utils.LogInfo("GetSubscriptionCard called")

	card, ok := loadCardForRequest(c)
	if !ok {
		return
	}
	utils.Success(c, "Digital card retrieved successfully", gin.H{"card": cardResponse(card)})
}

// DownloadSubscriptionCardPDF renders the digital card as a PDF
func DownloadSubscriptionCardPDF(c *gin.Context) {
	utils.LogInfo("DownloadSubscriptionCardPDF called")

	card, ok := loadCardForRequest(c)
	if !ok {
		return
	}

	pdf, err := utils.RenderCardPDF(card)
	if err != nil {
		utils.LogError("Failed to render card %d: %v", card.ID, err)
		utils.InternalServerError(c, "Failed to generate card PDF", err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=card_%s.pdf", card.MemberNumber))
	c.Data(200, "application/pdf", pdf)
	utils.LogInfo("Card PDF generated for %s", card.MemberNumber)
}
