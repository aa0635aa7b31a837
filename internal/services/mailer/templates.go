package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/magabrotheeeer/farm-manager/internal/models"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html lang="pt-BR"><body style="font-family: Arial, sans-serif; color: #2f3b2f;">
{{template "content" .}}
<p style="color:#888;font-size:12px;">Farm Manager</p>
</body></html>{{end}}`

var templates = map[string]string{
	"verification": `{{define "content"}}<h2>Olá, {{.Name}}!</h2>
<p>Confirme seu e-mail e defina sua senha para começar a usar o Farm Manager.</p>
<p><a href="{{.Link}}">Confirmar e-mail</a></p>
<p>Se você não se cadastrou, ignore esta mensagem.</p>{{end}}`,

	"invitation": `{{define "content"}}<h2>Você foi convidado!</h2>
<p>Você recebeu acesso como <b>{{.Role}}</b> ao Farm Manager.</p>
<p>Use o código abaixo para confirmar seu e-mail e completar seu cadastro:</p>
<p style="font-size:18px;font-family:monospace;">{{.Code}}</p>{{end}}`,

	"reset": `{{define "content"}}<h2>Olá, {{.Name}}!</h2>
<p>Recebemos um pedido para redefinir sua senha. O link é válido por 1 hora.</p>
<p><a href="{{.Link}}">Redefinir senha</a></p>
<p>Se você não fez este pedido, ignore esta mensagem.</p>{{end}}`,

	"plan_status": `{{define "content"}}<h2>Olá, {{.Name}}!</h2>
<p>O status do seu plano <b>{{.Plan}}</b> foi atualizado para <b>{{.Status}}</b>.</p>{{end}}`,

	"plan_expired": `{{define "content"}}<h2>Olá, {{.Name}}!</h2>
<p>Seu plano <b>{{.Plan}}</b> expirou. Renove para continuar usando todos os recursos.</p>{{end}}`,
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, body := range templates {
		t := template.Must(template.New(name).Parse(layout))
		out[name] = template.Must(t.Parse(body))
	}
	return out
}()

func render(name string, data any) (string, error) {
	t, ok := parsed[name]
	if !ok {
		return "", fmt.Errorf("mailer.render: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("mailer.render: %w", err)
	}
	return buf.String(), nil
}

// Email готовое письмо.
type Email struct {
	Subject string
	HTML    string
}

func build(subject, name string, data any) (Email, error) {
	body, err := render(name, data)
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: subject, HTML: body}, nil
}

// VerificationEmail письмо со ссылкой подтверждения почты.
func VerificationEmail(name, link string) (Email, error) {
	return build("Confirme seu e-mail", "verification", struct{ Name, Link string }{name, link})
}

// InvitationEmail письмо с кодом приглашения субпользователя.
func InvitationEmail(role models.Role, code string) (Email, error) {
	return build("Convite para o Farm Manager", "invitation", struct {
		Role models.Role
		Code string
	}{role, code})
}

// ResetEmail письмо со ссылкой сброса пароля.
func ResetEmail(name, link string) (Email, error) {
	return build("Redefinição de senha", "reset", struct{ Name, Link string }{name, link})
}

// PlanStatusEmail уведомление об изменении статуса плана.
func PlanStatusEmail(name string, plan models.PlanType, status models.PlanStatus) (Email, error) {
	return build("Atualização do seu plano", "plan_status", struct {
		Name   string
		Plan   models.PlanType
		Status models.PlanStatus
	}{name, plan, status})
}

// PlanExpiredEmail уведомление об истечении плана.
func PlanExpiredEmail(name string, plan models.PlanType) (Email, error) {
	return build("Seu plano expirou", "plan_expired", struct {
		Name string
		Plan models.PlanType
	}{name, plan})
}
