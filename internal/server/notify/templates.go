package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Invite carries what both invitation emails render.
type Invite struct {
	SignerEmail    string
	SignerName     string
	RequesterName  string
	RequesterEmail string
	DocumentName   string
	Link           string
}

// SigningLink joins the client base URL and a token.
func SigningLink(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/external-sign/" + token
}

var inviteTmpl = template.Must(template.New("invite").Parse(`<div style="background-color: #f3f4f6; padding: 20px; font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px;">
    <div style="background-color: #0d9488; color: white; padding: 20px; text-align: center;">
      <h1 style="margin: 0; font-size: 24px;">Docu-Signer</h1>
    </div>
    <div style="padding: 30px;">
      <h2 style="color: #1f2937; font-size: 20px;">You're Invited to Sign a Document</h2>
      <p>Hello {{.SignerName}},</p>
      <p>{{.RequesterName}} ({{.RequesterEmail}}) has requested your signature on the document:<br><strong>{{.DocumentName}}</strong></p>
      <div style="text-align: center; margin: 30px 0;">
        <a href="{{.Link}}" style="background-color: #0d9488; color: white; padding: 14px 28px; text-decoration: none; border-radius: 6px; display: inline-block; font-weight: bold;">Review &amp; Sign Document</a>
      </div>
      <p>If the button doesn't work, you can copy and paste this link into your browser:<br><a href="{{.Link}}">{{.Link}}</a></p>
    </div>
    <div style="background-color: #f9fafb; padding: 20px; text-align: center; color: #6b7280; font-size: 12px;">
      <p style="margin: 0;">This link will expire in 7 days.</p>
      <p style="margin: 5px 0 0 0;">This is an automated message. Please do not reply.</p>
    </div>
  </div>
</div>`))

var resendTmpl = template.Must(template.New("resend").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">Document Signature Request</h2>
  <p>Hello {{.SignerName}},</p>
  <p>You have been requested to sign the document: <strong>{{.DocumentName}}</strong></p>
  <p>Please click the button below to access and sign the document:</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.Link}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Sign Document</a>
  </div>
  <p><strong>Important:</strong></p>
  <ul>
    <li>This link will expire in 7 days</li>
    <li>You can sign the document without creating an account</li>
    <li>If the button doesn't work, copy and paste this URL: {{.Link}}</li>
  </ul>
  <p>If you have any questions, please contact the document sender.</p>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #e5e7eb;">
  <p style="color: #6b7280; font-size: 14px;">This is an automated message from Docu-Signer. Please do not reply to this email.</p>
</div>`))

// InviteMessage renders the first invitation.
func InviteMessage(in Invite) (Message, error) {
	return render(inviteTmpl, in, fmt.Sprintf("Signature Request from %s via Docu-Signer", in.RequesterName))
}

// ResendMessage renders a reissued invitation.
func ResendMessage(in Invite) (Message, error) {
	return render(resendTmpl, in, fmt.Sprintf("Document Signature Request - %s", in.DocumentName))
}

func render(t *template.Template, in Invite, subject string) (Message, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, in); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return Message{To: in.SignerEmail, Subject: subject, HTML: buf.String()}, nil
}
