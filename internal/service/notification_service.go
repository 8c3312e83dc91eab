package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"net/mail"
	"path"
	"sort"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/notify"
	"github.com/rs/zerolog"
)

// DocumentsReceipt is the result of send-student-documents.
type DocumentsReceipt struct {
	EmailID          string `json:"emailId"`
	AttachmentsCount int    `json:"attachmentsCount"`
}

// NotificationService emails student data and documents to the secretariat.
type NotificationService struct {
	mailer notify.Mailer
	bucket Bucket
	to     mail.Address
	log    zerolog.Logger
}

// NewNotificationService creates a NotificationService sending to recipient.
func NewNotificationService(mailer notify.Mailer, bucket Bucket, recipient string, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		mailer: mailer,
		bucket: bucket,
		to:     mail.Address{Name: "Secretaria", Address: recipient},
		log:    log.With().Str("component", "notification_service").Logger(),
	}
}

// SendFilesEmail sends inline base64 files with a summary of the student.
func (s *NotificationService) SendFilesEmail(ctx context.Context, req model.SendFilesEmailRequest) (*notify.Receipt, error) {
	const op = "notify.send_files_email"

	if strings.TrimSpace(req.StudentName) == "" {
		return nil, validationError(op, "studentName é obrigatório.", map[string]string{"studentName": "obrigatório"})
	}

	attachments := make([]notify.Attachment, 0, len(req.Files))
	for _, f := range req.Files {
		if _, err := base64.StdEncoding.DecodeString(f.Content); err != nil {
			return nil, validationError(op, fmt.Sprintf("O ficheiro %s não está em base64.", f.Name), map[string]string{"files": "conteúdo inválido"})
		}
		attachments = append(attachments, notify.Attachment{Filename: f.Name, ContentType: f.Type, Content: f.Content})
	}

	msg := notify.Message{
		To:          []mail.Address{s.to},
		Subject:     "Documentos de " + req.StudentName,
		Text:        summaryText(req.StudentName, req.StudentInfo),
		HTML:        summaryHTML(req.StudentName, req.StudentInfo, attachments),
		Attachments: attachments,
	}
	receipt, err := s.mailer.Send(ctx, msg)
	if err != nil {
		return receipt, &Error{Kind: KindBackend, Op: op, Message: "Erro ao enviar o email: " + err.Error(), Err: err}
	}
	return receipt, nil
}

// SendStudentDocuments downloads each document path from the bucket and
// emails them with a summary. Documents that cannot be downloaded are left
// out and logged.
func (s *NotificationService) SendStudentDocuments(ctx context.Context, req model.StudentDocumentsRequest) (*DocumentsReceipt, error) {
	const op = "notify.send_student_documents"

	paths := req.Files.ByKind()
	attachments := make([]notify.Attachment, 0, len(paths))
	for _, kind := range model.DocumentKinds {
		p, ok := paths[kind]
		if !ok {
			continue
		}
		data, contentType, err := s.bucket.Download(ctx, p)
		if err != nil {
			s.log.Warn().Err(err).Str("path", p).Str("document", string(kind)).Msg("document download failed, skipping")
			continue
		}
		attachments = append(attachments, notify.Attachment{
			Filename:    string(kind) + path.Ext(p),
			ContentType: contentType,
			Content:     base64.StdEncoding.EncodeToString(data),
		})
	}

	name, _ := req.StudentData["nome"].(string)
	if name == "" {
		name = "aluno"
	}
	msg := notify.Message{
		To:          []mail.Address{s.to},
		Subject:     "Nova inscrição: " + name,
		Text:        summaryText(name, req.StudentData),
		HTML:        summaryHTML(name, req.StudentData, attachments),
		Attachments: attachments,
	}
	receipt, err := s.mailer.Send(ctx, msg)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Message: "Erro ao enviar o email: " + err.Error(), Err: err}
	}
	return &DocumentsReceipt{EmailID: receipt.ID, AttachmentsCount: len(attachments)}, nil
}

// NotifyEnrollment implements DocumentNotifier.
func (s *NotificationService) NotifyEnrollment(ctx context.Context, student *model.Student, pairName string) error {
	data := map[string]any{
		"nome":             student.Name,
		"numero_estudante": student.StudentNumber,
		"numero_bi":        student.IDNumber,
		"telefone":         student.Phone,
		"curso_codigo":     student.CourseCode,
		"turma":            pairName,
		"turno":            student.Shift,
		"metodo_pagamento": string(student.PaymentMethod),
		"valor_pago":       student.AmountPaid,
		"status":           string(student.Status),
	}
	if student.Email != nil {
		data["email"] = *student.Email
	}
	_, err := s.SendStudentDocuments(ctx, model.StudentDocumentsRequest{
		StudentData: data,
		Files:       model.DocumentPathsOf(student),
	})
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func summaryText(name string, info map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Aluno: %s\n\n", name)
	for _, k := range sortedKeys(info) {
		fmt.Fprintf(&b, "%s: %v\n", k, info[k])
	}
	return b.String()
}

func summaryHTML(name string, info map[string]any, attachments []notify.Attachment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Aluno: %s</h2><table>", html.EscapeString(name))
	for _, k := range sortedKeys(info) {
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>",
			html.EscapeString(k), html.EscapeString(fmt.Sprint(info[k])))
	}
	b.WriteString("</table>")
	if len(attachments) > 0 {
		b.WriteString("<p>Anexos:</p><ul>")
		for _, a := range attachments {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(a.Filename))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}
