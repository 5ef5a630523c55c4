package api

import (
	"time"

	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/services"
)

type documentDTO struct {
	ID           string    `json:"id"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	SignedPath   *string   `json:"signedPath"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

func toDocument(d *models.Document) documentDTO {
	out := documentDTO{
		ID:           d.ID,
		FileName:     d.FileName,
		OriginalName: d.OriginalName,
		Path:         services.PublicPath(d.Path),
		Size:         d.Size,
		UploadedAt:   d.UploadedAt,
	}
	if d.SignedPath != nil {
		p := services.PublicPath(*d.SignedPath)
		out.SignedPath = &p
	}
	return out
}

type userDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type auditDTO struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	User      *userDTO  `json:"user"`
	Action    string    `json:"action"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}

func toAudit(e models.AuditEntry) auditDTO {
	out := auditDTO{ID: e.ID, UserID: e.UserID, Action: e.Action, IP: e.IP, Timestamp: e.Timestamp}
	if e.UserName != nil || e.UserEmail != nil {
		out.User = &userDTO{}
		if e.UserName != nil {
			out.User.Name = *e.UserName
		}
		if e.UserEmail != nil {
			out.User.Email = *e.UserEmail
		}
	}
	return out
}

func toUser(u *models.User) *userDTO {
	if u == nil {
		return nil
	}
	return &userDTO{Name: u.Name, Email: u.Email}
}

type externalDTO struct {
	ID              string                 `json:"id"`
	DocumentID      string                 `json:"documentId"`
	DocumentName    string                 `json:"documentName,omitempty"`
	SignerEmail     string                 `json:"signerEmail"`
	SignerName      string                 `json:"signerName"`
	Status          models.ExternalStatus  `json:"status"`
	RejectionReason *string                `json:"rejectionReason,omitempty"`
	Fields          []models.ExternalField `json:"fields"`
	ExpiresAt       time.Time              `json:"expiresAt"`
	SignedAt        *time.Time             `json:"signedAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func toExternal(e *models.ExternalSignature) externalDTO {
	fields := e.Fields
	if fields == nil {
		fields = []models.ExternalField{}
	}
	return externalDTO{
		ID:              e.ID,
		DocumentID:      e.DocumentID,
		SignerEmail:     e.SignerEmail,
		SignerName:      e.SignerName,
		Status:          e.Status,
		RejectionReason: e.RejectionReason,
		Fields:          fields,
		ExpiresAt:       e.ExpiresAt,
		SignedAt:        e.SignedAt,
		CreatedAt:       e.CreatedAt,
	}
}

type finalizeRequest struct {
	DocumentID string         `json:"documentId" binding:"required"`
	Signatures []models.Field `json:"signatures"`
}

type createInviteRequest struct {
	DocumentID  string                 `json:"documentId" binding:"required"`
	SignerEmail string                 `json:"signerEmail" binding:"required"`
	SignerName  string                 `json:"signerName" binding:"required"`
	Fields      []models.ExternalField `json:"fields"`
}

type externalSignRequest struct {
	Signatures []models.Field `json:"signatures"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}
