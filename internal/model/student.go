package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how the enrollment fee was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "dinheiro"
	PaymentTransfer PaymentMethod = "transferencia"
	PaymentCard     PaymentMethod = "cartao"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentTransfer || m == PaymentCard
}

// StudentStatus is the enrollment status.
type StudentStatus string

const (
	StatusEnrolled  StudentStatus = "inscrito"
	StatusConfirmed StudentStatus = "confirmado"
	StatusCancelled StudentStatus = "cancelado"
)

// Valid reports whether s is a known status.
func (s StudentStatus) Valid() bool {
	return s == StatusEnrolled || s == StatusConfirmed || s == StatusCancelled
}

// DocumentKind names one of the optional enrollment documents.
type DocumentKind string

const (
	DocPhoto        DocumentKind = "foto"
	DocIDCopy       DocumentKind = "copia_bi"
	DocCertificate  DocumentKind = "declaracao_certificado"
	DocPaymentProof DocumentKind = "comprovativo_pagamento"
)

// DocumentKinds lists the documents in upload order.
var DocumentKinds = []DocumentKind{DocPhoto, DocIDCopy, DocCertificate, DocPaymentProof}

// Label is the human readable document name used in messages and emails.
func (k DocumentKind) Label() string {
	switch k {
	case DocPhoto:
		return "Foto"
	case DocIDCopy:
		return "Cópia do BI"
	case DocCertificate:
		return "Declaração/Certificado"
	case DocPaymentProof:
		return "Comprovativo de pagamento"
	}
	return string(k)
}

// Student is an enrolled student record.
type Student struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"nome"`
	Email            *string       `json:"email,omitempty"`
	Phone            string        `json:"telefone"`
	IDNumber         string        `json:"numero_bi"`
	BirthDate        *time.Time    `json:"data_nascimento,omitempty"`
	Address          *string       `json:"endereco,omitempty"`
	StudentNumber    string        `json:"numero_estudante"`
	CourseCode       string        `json:"curso_codigo"`
	PairID           uuid.UUID     `json:"turma_pair_id"`
	ClassID          uuid.UUID     `json:"turma_id"`
	Shift            string        `json:"turno"`
	Duration         string        `json:"duracao"`
	StartDate        *time.Time    `json:"data_inicio,omitempty"`
	PaymentMethod    PaymentMethod `json:"metodo_pagamento"`
	AmountPaid       float64       `json:"valor_pago"`
	Status           StudentStatus `json:"status"`
	EnrolledAt       time.Time     `json:"data_inscricao"`
	PhotoPath        *string       `json:"foto_url,omitempty"`
	IDCopyPath       *string       `json:"copia_bi_url,omitempty"`
	CertificatePath  *string       `json:"declaracao_certificado_url,omitempty"`
	PaymentProofPath *string       `json:"comprovativo_pagamento_url,omitempty"`
	CreatedBy        *uuid.UUID    `json:"created_by,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Documents returns the stored document paths keyed by kind. Absent
// documents are omitted.
func (s *Student) Documents() map[DocumentKind]string {
	out := make(map[DocumentKind]string, 4)
	add := func(k DocumentKind, p *string) {
		if p != nil && *p != "" {
			out[k] = *p
		}
	}
	add(DocPhoto, s.PhotoPath)
	add(DocIDCopy, s.IDCopyPath)
	add(DocCertificate, s.CertificatePath)
	add(DocPaymentProof, s.PaymentProofPath)
	return out
}

// SetDocument stores the path for a document kind.
func (s *Student) SetDocument(k DocumentKind, path string) {
	p := path
	switch k {
	case DocPhoto:
		s.PhotoPath = &p
	case DocIDCopy:
		s.IDCopyPath = &p
	case DocCertificate:
		s.CertificatePath = &p
	case DocPaymentProof:
		s.PaymentProofPath = &p
	}
}

// StudentSummary is the student projection nested in pair aggregates.
type StudentSummary struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"nome"`
	StudentNumber string        `json:"numero_estudante"`
	CourseCode    string        `json:"curso_codigo"`
	ClassID       uuid.UUID     `json:"turma_id"`
	Status        StudentStatus `json:"status"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	PairID     *uuid.UUID    `form:"-"`
	ClassID    *uuid.UUID    `form:"-"`
	CourseCode string        `form:"curso_codigo" binding:"omitempty,max=64"`
	Status     StudentStatus `form:"status" binding:"omitempty,oneof=inscrito confirmado cancelado"`
	Search     string        `form:"q" binding:"omitempty,max=100"`
	Page       int           `form:"page" binding:"omitempty,min=1"`
	PerPage    int           `form:"per_page" binding:"omitempty,min=1,max=200"`
}

// StudentFields is a partial student update.
type StudentFields struct {
	Name          *string
	Email         *string
	Phone         *string
	IDNumber      *string
	BirthDate     *time.Time
	Address       *string
	CourseCode    *string
	PairID        *uuid.UUID
	ClassID       *uuid.UUID
	Shift         *string
	Duration      *string
	StartDate     *time.Time
	PaymentMethod *PaymentMethod
	AmountPaid    *float64
	Status        *StudentStatus
}

// UpdateStudentRequest is the admin edit payload.
type UpdateStudentRequest struct {
	Name          *string        `json:"nome" binding:"omitempty,min=2,max=200"`
	Email         *string        `json:"email" binding:"omitempty,email,max=255"`
	Phone         *string        `json:"telefone" binding:"omitempty,min=6,max=30"`
	IDNumber      *string        `json:"numero_bi" binding:"omitempty,min=5,max=30"`
	BirthDate     *string        `json:"data_nascimento" binding:"omitempty,datetime=2006-01-02"`
	Address       *string        `json:"endereco" binding:"omitempty,max=300"`
	CourseCode    *string        `json:"curso_codigo" binding:"omitempty,max=64"`
	Shift         *string        `json:"turno" binding:"omitempty,max=30"`
	Duration      *string        `json:"duracao" binding:"omitempty,max=30"`
	StartDate     *string        `json:"data_inicio" binding:"omitempty,datetime=2006-01-02"`
	PaymentMethod *PaymentMethod `json:"metodo_pagamento" binding:"omitempty,oneof=dinheiro transferencia cartao"`
	Status        *StudentStatus `json:"status" binding:"omitempty,oneof=inscrito confirmado cancelado"`
}

// UpdatePaymentRequest edits the payment status of a student.
type UpdatePaymentRequest struct {
	Status        StudentStatus  `json:"status" binding:"required,oneof=inscrito confirmado cancelado"`
	PaymentMethod *PaymentMethod `json:"metodo_pagamento" binding:"omitempty,oneof=dinheiro transferencia cartao"`
	AmountPaid    *float64       `json:"valor_pago" binding:"omitempty,min=0"`
}

// EnrollmentRequest is the multipart form submitted by the enrollment screen.
// Required-field checks are done by the enrollment workflow so that every
// missing field is reported together.
type EnrollmentRequest struct {
	Name          string        `form:"nome" json:"nome"`
	Email         string        `form:"email" json:"email"`
	Phone         string        `form:"telefone" json:"telefone"`
	IDNumber      string        `form:"numero_bi" json:"numero_bi"`
	BirthDate     string        `form:"data_nascimento" json:"data_nascimento"`
	Address       string        `form:"endereco" json:"endereco"`
	CourseCode    string        `form:"curso_codigo" json:"curso_codigo"`
	Selection     string        `form:"turma_selecionada" json:"turma_selecionada"`
	Shift         string        `form:"turno" json:"turno"`
	Duration      string        `form:"duracao" json:"duracao"`
	StartDate     string        `form:"data_inicio" json:"data_inicio"`
	PaymentMethod PaymentMethod `form:"metodo_pagamento" json:"metodo_pagamento"`
	Status        StudentStatus `form:"status" json:"status"`
}
