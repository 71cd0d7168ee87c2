package controllers

import (
	"errors"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CardTemplateRequest is the body of the card template endpoints
type CardTemplateRequest struct {
	PlanID         *uint   `json:"planId"`
	Title          *string `json:"title"`
	LogoURL        *string `json:"logoUrl"`
	PrimaryColor   *string `json:"primaryColor"`
	SecondaryColor *string `json:"secondaryColor"`
	TextColor      *string `json:"textColor"`
	ShowBarcode    *bool   `json:"showBarcode"`
	BarcodeType    *string `json:"barcodeType"`
}

var barcodeTypes = map[string]bool{"qr": true, "code128": true, "pdf417": true}

func (r *CardTemplateRequest) validate() string {
	for _, color := range []*string{r.PrimaryColor, r.SecondaryColor, r.TextColor} {
		if color != nil && !utils.ValidateHexColor(*color) {
			return "Colors must be hex values such as #1E3A8A"
		}
	}
	if r.BarcodeType != nil && !barcodeTypes[*r.BarcodeType] {
		return "Barcode type must be qr, code128 or pdf417"
	}
	return ""
}

// apply copies the set fields onto template
func (r *CardTemplateRequest) apply(template *models.DigitalCard) {
	if r.Title != nil {
		template.Title = utils.SanitizeString(*r.Title)
	}
	if r.LogoURL != nil {
		template.LogoURL = *r.LogoURL
	}
	if r.PrimaryColor != nil && *r.PrimaryColor != "" {
		template.PrimaryColor = *r.PrimaryColor
	}
	if r.SecondaryColor != nil && *r.SecondaryColor != "" {
		template.SecondaryColor = *r.SecondaryColor
	}
	if r.TextColor != nil && *r.TextColor != "" {
		template.TextColor = *r.TextColor
	}
	if r.ShowBarcode != nil {
		template.ShowBarcode = *r.ShowBarcode
	}
	if r.BarcodeType != nil {
		template.BarcodeType = *r.BarcodeType
	}
}

// CreateCardTemplate stores the card design for the caller, optionally scoped to one plan
func CreateCardTemplate(c *gin.Context) {
	utils.LogInfo("CreateCardTemplate called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req CardTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid card template request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		utils.BadRequest(c, msg, nil)
		return
	}
	if req.PlanID != nil {
		if _, ok := loadManagedPlan(c, user, *req.PlanID); !ok {
			return
		}
	}

	template := models.DigitalCard{
		IsTemplate:     true,
		PlanID:         req.PlanID,
		CreatedBy:      user.ID,
		PrimaryColor:   utils.DefaultCardPrimaryColor,
		SecondaryColor: utils.DefaultCardSecondaryColor,
		TextColor:      utils.DefaultCardTextColor,
		ShowBarcode:    true,
		BarcodeType:    utils.DefaultCardBarcodeType,
	}
	req.apply(&template)

	if err := config.DB.Create(&template).Error; err != nil {
		utils.LogError("Failed to create card template for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to create card template", err.Error())
		return
	}

	utils.LogInfo("Card template %d created by user %d", template.ID, user.ID)
	utils.Created(c, "Card template created successfully", gin.H{"template": cardResponse(&template)})
}

// ListCardTemplates lists the caller's card templates
func ListCardTemplates(c *gin.Context) {
	utils.LogInfo("ListCardTemplates called")

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var templates []models.DigitalCard
	if err := config.DB.Where("is_template = ? AND created_by = ?", true, user.ID).
		Order("created_at DESC").Find(&templates).Error; err != nil {
		utils.LogError("Failed to list card templates for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to fetch card templates", err.Error())
		return
	}

	list := make([]gin.H, 0, len(templates))
	for i := range templates {
		list = append(list, cardResponse(&templates[i]))
	}
	utils.Success(c, "Card templates retrieved successfully", gin.H{"templates": list})
}

// UpdateCardTemplate edits a template; cards already issued keep their design
func UpdateCardTemplate(c *gin.Context) {
	utils.LogInfo("UpdateCardTemplate called")

	user, ok := requireUser(c)
	if !ok {
		return
	}
	templateID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CardTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		utils.BadRequest(c, msg, nil)
		return
	}

	var template models.DigitalCard
	if err := config.DB.Where("id = ? AND is_template = ?", templateID, true).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Card template not found")
			return
		}
		utils.InternalServerError(c, "Failed to load card template", err.Error())
		return
	}
	if !user.IsAdmin && template.CreatedBy != user.ID {
		utils.LogError("User %d attempted to edit card template %d", user.ID, template.ID)
		utils.Forbidden(c, "You do not manage this card template")
		return
	}
	if req.PlanID != nil {
		if _, ok := loadManagedPlan(c, user, *req.PlanID); !ok {
			return
		}
		template.PlanID = req.PlanID
	}
	req.apply(&template)

	if err := config.DB.Save(&template).Error; err != nil {
		utils.LogError("Failed to update card template %d: %v", template.ID, err)
		utils.InternalServerError(c, "Failed to update card template", err.Error())
		return
	}

	utils.LogInfo("Card template %d updated by user %d", template.ID, user.ID)
	utils.Success(c, "Card template updated successfully", gin.H{"template": cardResponse(&template)})
}
