package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApplyRequest is the body of POST /public/apply
type ApplyRequest struct {
	Email      string                 `json:"email" binding:"required"`
	FirstName  string                 `json:"firstName" binding:"required"`
	LastName   string                 `json:"lastName"`
	PlanID     uint                   `json:"planId" binding:"required"`
	FormData   map[string]interface{} `json:"formData"`
	CouponCode *string                `json:"couponCode"`
	CouponID   *uint                  `json:"couponId"`
}

func validateApplyRequest(req *ApplyRequest) utils.FieldValidationErrors {
	var errs utils.FieldValidationErrors
	if valid, msg := utils.ValidateEmail(req.Email); !valid {
		errs = append(errs, utils.FieldValidationError{Field: "email", Message: msg})
	}
	if valid, msg := utils.ValidateName(req.FirstName); !valid {
		errs = append(errs, utils.FieldValidationError{Field: "firstName", Message: msg})
	}
	if valid, msg := utils.ValidateName(req.LastName); !valid {
		errs = append(errs, utils.FieldValidationError{Field: "lastName", Message: msg})
	}
	return errs
}

// ApplyForMembership creates an incomplete application, or returns the one already open for
// the same email and plan
func ApplyForMembership(c *gin.Context) {
	utils.LogInfo("ApplyForMembership called")

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid application request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if errs := validateApplyRequest(&req); len(errs) > 0 {
		utils.LogError("Application validation failed for %s: %v", req.Email, errs)
		utils.BadRequest(c, "Validation failed", errs)
		return
	}

	var plan models.Plan
	if err := config.DB.Where("id = ? AND is_active = ?", req.PlanID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError("Application for unknown or inactive plan %d", req.PlanID)
			utils.NotFound(c, utils.ErrPlanNotFound)
			return
		}
		utils.LogError("Failed to load plan %d: %v", req.PlanID, err)
		utils.InternalServerError(c, "Failed to load plan", err.Error())
		return
	}

	var existing models.Application
	err := config.DB.Where("email = ? AND plan_id = ? AND status IN ?", req.Email, plan.ID,
		[]string{models.ApplicationStatusIncomplete, models.ApplicationStatusPending, models.ApplicationStatusApproved}).
		Order("created_at DESC").First(&existing).Error
	if err == nil {
		switch existing.Status {
		case models.ApplicationStatusIncomplete:
			utils.LogInfo("Returning incomplete application %d for %s", existing.ID, req.Email)
			saveDraft(c, existing.ID)
			utils.Success(c, "An incomplete application already exists", gin.H{
				"application":  applicationResponse(&existing),
				"isIncomplete": true,
			})
		case models.ApplicationStatusPending:
			utils.LogInfo("Application %d for %s is already under review", existing.ID, req.Email)
			utils.BadRequest(c, "An application for this plan is already under review", nil)
		default:
			utils.LogInfo("Applicant %s is already a member of plan %d", req.Email, plan.ID)
			utils.BadRequest(c, "You are already a member of this plan", nil)
		}
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.LogError("Failed to look up existing application: %v", err)
		utils.InternalServerError(c, "Failed to create application", err.Error())
		return
	}

	app := models.Application{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PlanID:         plan.ID,
		Status:         models.ApplicationStatusIncomplete,
		OriginalAmount: plan.Fee,
		DiscountAmount: decimal.Zero,
		FinalAmount:    plan.Fee,
	}

	if req.FormData != nil {
		formData, err := json.Marshal(req.FormData)
		if err != nil {
			utils.BadRequest(c, "Invalid form data", err.Error())
			return
		}
		app.FormData = datatypes.JSON(formData)
	}

	hasCode := req.CouponCode != nil && strings.TrimSpace(*req.CouponCode) != ""
	if hasCode || req.CouponID != nil {
		quote, err := quoteApplicationCoupon(&plan, req.CouponCode, req.CouponID)
		if err != nil {
			utils.LogInfo("Coupon rejected on application for %s: %v", req.Email, err)
			utils.RespondWithError(c, "Failed to validate coupon", err)
			return
		}
		code := quote.Coupon.Code
		app.CouponID = &quote.Coupon.ID
		app.CouponCode = &code
		app.DiscountAmount = quote.DiscountAmount
		app.FinalAmount = quote.FinalAmount
		utils.LogInfo("Coupon %s applied to application for %s: %s off", code, req.Email, utils.FormatAmount(quote.DiscountAmount))
	}

	if err := config.DB.Create(&app).Error; err != nil {
		utils.LogError("Failed to create application for %s: %v", req.Email, err)
		utils.InternalServerError(c, "Failed to create application", err.Error())
		return
	}

	saveDraft(c, app.ID)
	utils.LogInfo("Application %d created for %s on plan %d, final amount %s", app.ID, app.Email, plan.ID, utils.FormatAmount(app.FinalAmount))
	utils.Created(c, "Application created successfully", gin.H{
		"application":  applicationResponse(&app),
		"isIncomplete": true,
	})
}

func quoteApplicationCoupon(plan *models.Plan, code *string, couponID *uint) (*utils.CouponQuote, error) {
	var coupon *models.Coupon
	var err error
	if couponID != nil {
		var found models.Coupon
		if err = config.DB.First(&found, *couponID).Error; err == nil {
			coupon = &found
		}
	}
	if coupon == nil && code != nil && strings.TrimSpace(*code) != "" {
		coupon, err = utils.FindCouponByCode(config.DB, *code)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrCouponInvalid
		}
		return nil, utils.WrapError(err, "failed to load coupon")
	}
	if coupon == nil {
		return nil, utils.ErrCouponInvalid
	}
	// a code and an id that disagree are treated as an invalid submission
	if code != nil && strings.TrimSpace(*code) != "" && utils.NormalizeCouponCode(*code) != coupon.Code {
		return nil, utils.ErrCouponInvalid
	}
	return utils.ValidateCoupon(coupon, plan, plan.ID, time.Now())
}

func saveDraft(c *gin.Context, applicationID uint) {
	if err := utils.SaveDraftApplication(c, applicationID); err != nil {
		utils.LogWarn("Could not remember draft application %d: %v", applicationID, err)
	}
}

// GetCurrentApplication resumes the applicant's draft from the session cookie
func GetCurrentApplication(c *gin.Context) {
	utils.LogInfo("GetCurrentApplication called")

	applicationID, ok := utils.DraftApplicationID(c)
	if !ok {
		utils.LogDebug("No draft application in session")
		utils.NotFound(c, "No application in progress")
		return
	}

	var app models.Application
	if err := config.DB.First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ClearDraftApplication(c)
			utils.NotFound(c, utils.ErrApplicationNotFound)
			return
		}
		utils.LogError("Failed to load application %d: %v", applicationID, err)
		utils.InternalServerError(c, "Failed to load application", err.Error())
		return
	}

	utils.Success(c, "Application retrieved successfully", gin.H{
		"application":  applicationResponse(&app),
		"isIncomplete": app.Status == models.ApplicationStatusIncomplete,
	})
}

// loadApplicationWithPlan loads an application and its plan, including soft-deleted plans
func loadApplicationWithPlan(c *gin.Context, applicationID uint) (*models.Application, *models.Plan, bool) {
	var app models.Application
	if err := config.DB.First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError("Application not found: %d", applicationID)
			utils.NotFound(c, utils.ErrApplicationNotFound)
			return nil, nil, false
		}
		utils.LogError("Failed to load application %d: %v", applicationID, err)
		utils.InternalServerError(c, "Failed to load application", err.Error())
		return nil, nil, false
	}

	var plan models.Plan
	if err := config.DB.Unscoped().First(&plan, app.PlanID).Error; err != nil {
		utils.LogError("Plan %d of application %d not found: %v", app.PlanID, app.ID, err)
		utils.Error(c, http.StatusNotFound, utils.ErrPlanNotFound, nil)
		return nil, nil, false
	}
	return &app, &plan, true
}
