package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendStudentDocuments(t *testing.T) {
	bucket := newMemBucket()
	bucket.objects["anonimo/1_copia_bi.pdf"] = []byte("%PDF")
	mailer := notify.NewLogMailer(testLog)
	svc := NewNotificationService(mailer, bucket, "secretaria@example.org", testLog)

	idCopy := "anonimo/1_copia_bi.pdf"
	missing := "anonimo/1_foto.png"
	receipt, err := svc.SendStudentDocuments(context.Background(), model.StudentDocumentsRequest{
		StudentData: map[string]any{"nome": "Maria <Silva>", "telefone": "923456789"},
		Files:       model.DocumentPaths{IDCopy: &idCopy, Photo: &missing},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.AttachmentsCount)
	assert.NotEmpty(t, receipt.EmailID)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "secretaria@example.org", msg.To[0].Address)
	assert.Equal(t, "Nova inscrição: Maria <Silva>", msg.Subject)
	assert.Contains(t, msg.Text, "telefone: 923456789")
	assert.Contains(t, msg.HTML, "Maria &lt;Silva&gt;")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "copia_bi.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF")), msg.Attachments[0].Content)
}

func TestSendFilesEmail(t *testing.T) {
	mailer := notify.NewLogMailer(testLog)
	svc := NewNotificationService(mailer, newMemBucket(), "secretaria@example.org", testLog)
	ctx := context.Background()

	_, err := svc.SendFilesEmail(ctx, model.SendFilesEmailRequest{StudentName: "  "})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.SendFilesEmail(ctx, model.SendFilesEmailRequest{
		StudentName: "Maria",
		Files:       []model.FileAttachment{{Name: "bi.pdf", Type: "application/pdf", Content: "%%%"}},
	})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Empty(t, mailer.Sent())

	receipt, err := svc.SendFilesEmail(ctx, model.SendFilesEmailRequest{
		StudentName: "Maria",
		StudentInfo: map[string]any{"curso": "enfermagem"},
		Files:       []model.FileAttachment{{Name: "bi.pdf", Type: "application/pdf", Content: base64.StdEncoding.EncodeToString([]byte("x"))}},
	})
	require.NoError(t, err)
	assert.Equal(t, 202, receipt.StatusCode)
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Documentos de Maria", sent[0].Subject)
	assert.True(t, strings.Contains(sent[0].HTML, "bi.pdf"))
}

func TestNotifyEnrollment(t *testing.T) {
	bucket := newMemBucket()
	bucket.objects["u1/1_comprovativo_pagamento.pdf"] = []byte("%PDF")
	mailer := notify.NewLogMailer(testLog)
	svc := NewNotificationService(mailer, bucket, "secretaria@example.org", testLog)

	st := &model.Student{Name: "Maria", StudentNumber: "20260001", Status: model.StatusConfirmed, AmountPaid: 15000}
	st.SetDocument(model.DocPaymentProof, "u1/1_comprovativo_pagamento.pdf")

	require.NoError(t, svc.NotifyEnrollment(context.Background(), st, "Par 1 - Manhã"))
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "turma: Par 1 - Manhã")
	assert.Contains(t, sent[0].Text, "numero_estudante: 20260001")
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "comprovativo_pagamento.pdf", sent[0].Attachments[0].Filename)
}
