package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/netx"
	"github.com/dmitrijs2005/docusigner/internal/server/services"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 20 << 20

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
}

func (r *Router) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)

	fh, err := c.FormFile("pdf")
	if err != nil {
		r.fail(c, badRequest(errors.New("multipart field \"pdf\" is required")))
		return
	}
	if fh.Size > maxUploadBytes {
		r.fail(c, badRequest(fmt.Errorf("file larger than %d bytes", maxUploadBytes)))
		return
	}
	f, err := fh.Open()
	if err != nil {
		r.fail(c, badRequest(err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		r.fail(c, badRequest(err))
		return
	}

	doc, err := r.documents.Upload(c.Request.Context(), c.GetString(userIDKey), fh.Filename, data, netx.OriginAddress(c.Request))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDocument(doc))
}

func (r *Router) getDocument(c *gin.Context) {
	doc, err := r.documents.Get(c.Request.Context(), c.Param("id"), c.GetString(userIDKey))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocument(doc))
}

func (r *Router) auditTrail(c *gin.Context) {
	entries, err := r.documents.AuditTrail(c.Request.Context(), c.Param("docId"), c.GetString(userIDKey))
	if err != nil {
		r.fail(c, err)
		return
	}
	out := make([]auditDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAudit(e))
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) download(c *gin.Context) {
	data, err := r.documents.OpenArtifact(c.Request.Context(), c.Param("name"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

func (r *Router) finalize(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	p, err := r.signing.SignOwned(c.Request.Context(), req.DocumentID, c.GetString(userIDKey), req.Signatures, netx.OriginAddress(c.Request))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document signed", "signedFile": p})
}

func (r *Router) createInvite(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	inv, err := r.invites.CreateInvite(c.Request.Context(), services.CreateInviteInput{
		DocumentID:  req.DocumentID,
		RequesterID: c.GetString(userIDKey),
		SignerEmail: req.SignerEmail,
		SignerName:  req.SignerName,
		Fields:      req.Fields,
		IP:          netx.OriginAddress(c.Request),
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, invitationBody(inv, "External signature request created"))
}

func (r *Router) resendInvite(c *gin.Context) {
	inv, err := r.invites.ResendInvite(c.Request.Context(), c.Param("id"), c.GetString(userIDKey), netx.OriginAddress(c.Request))
	if err != nil {
		r.fail(c, err)
		return
	}
	body := invitationBody(inv, "Signature request resent")
	body["expiresAt"] = inv.ExpiresAt
	c.JSON(http.StatusOK, body)
}

func invitationBody(inv *services.Invitation, msg string) gin.H {
	body := gin.H{
		"message":           msg,
		"tokenizedUrl":      inv.Link,
		"externalSignature": toExternal(inv.Request),
		"emailSent":         inv.EmailSent,
	}
	if !inv.EmailSent {
		body["warning"] = "invitation email could not be sent; share the link manually or resend"
	}
	return body
}

func (r *Router) listRequests(c *gin.Context) {
	views, err := r.invites.ListRequests(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		r.fail(c, err)
		return
	}
	out := make([]externalDTO, 0, len(views))
	for i := range views {
		d := toExternal(&views[i].ExternalSignature)
		d.DocumentName = views[i].DocumentName
		out = append(out, d)
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) fetchForSigning(c *gin.Context) {
	view, err := r.invites.FetchForSigning(c.Request.Context(), c.Param("token"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"externalSignature": toExternal(view.Request),
		"document": gin.H{
			"id":           view.Document.ID,
			"originalName": view.Document.OriginalName,
			"path":         services.PublicPath(view.Document.Path),
		},
		"requester": toUser(view.Requester),
	})
}

func (r *Router) submitExternalSign(c *gin.Context) {
	var req externalSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	at, err := r.signing.SubmitExternalSign(c.Request.Context(), c.Param("token"), req.Signatures, netx.OriginAddress(c.Request))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document signed", "signedAt": at})
}

func (r *Router) submitReject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	if err := r.invites.SubmitReject(c.Request.Context(), c.Param("token"), req.Reason, netx.OriginAddress(c.Request)); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signature request rejected"})
}
