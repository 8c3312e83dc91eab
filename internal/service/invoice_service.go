package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	invoiceSheet = "Fatura"
	exportSheet  = "Alunos"
)

// Document is a generated file.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// InvoiceService generates invoices and student exports as XLSX workbooks.
type InvoiceService struct {
	students *StudentService
	courses  CourseStore
	pairs    ClassPairStore
	now      func() time.Time
	log      zerolog.Logger
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(students *StudentService, courses CourseStore, pairs ClassPairStore, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		students: students,
		courses:  courses,
		pairs:    pairs,
		now:      time.Now,
		log:      log.With().Str("component", "invoice_service").Logger(),
	}
}

// Invoice builds the invoice of one student. The consistency check runs
// first and an inconsistent student gets no invoice.
func (s *InvoiceService) Invoice(ctx context.Context, id uuid.UUID) (*Document, error) {
	const op = "invoice.generate"

	student, result, err := s.students.CheckConsistency(ctx, id)
	if err != nil {
		return nil, err
	}
	if !result.IsConsistent {
		problems := append(append([]string{}, result.Errors...), result.Warnings...)
		return nil, &Error{
			Kind:    KindConflict,
			Op:      op,
			Message: "Não é possível emitir a fatura: " + strings.Join(problems, " "),
		}
	}

	course, err := s.courses.GetByCode(ctx, student.CourseCode)
	if err != nil {
		return nil, storeError(op, "Curso", err)
	}
	pair, err := s.pairs.GetByID(ctx, student.PairID)
	if err != nil {
		return nil, storeError(op, "Par de turmas", err)
	}

	f, err := BuildInvoice(student, course, pair, s.now())
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Message: "Erro ao gerar a fatura.", Err: err}
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Message: "Erro ao gerar a fatura.", Err: err}
	}
	return &Document{
		Filename:    InvoiceNumber(student) + ".xlsx",
		ContentType: XLSXContentType,
		Content:     buf.Bytes(),
	}, nil
}

// Export builds a workbook with every student matching filter.
func (s *InvoiceService) Export(ctx context.Context, filter model.StudentFilter) (*Document, error) {
	const op = "invoice.export"

	students, err := s.students.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	f, err := BuildStudentExport(students)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Message: "Erro ao gerar a exportação.", Err: err}
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Message: "Erro ao gerar a exportação.", Err: err}
	}
	return &Document{
		Filename:    fmt.Sprintf("alunos_%s.xlsx", s.now().Format("20060102_150405")),
		ContentType: XLSXContentType,
		Content:     buf.Bytes(),
	}, nil
}

// InvoiceNumber is "FT-" followed by the student number.
func InvoiceNumber(student *model.Student) string {
	return "FT-" + student.StudentNumber
}

// BuildInvoice lays out a single-sheet invoice.
func BuildInvoice(student *model.Student, course *model.Course, pair *model.ClassPair, issuedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		f.Close()
		return nil, err
	}

	email := ""
	if student.Email != nil {
		email = *student.Email
	}
	rows := [][2]any{
		{"Fatura", InvoiceNumber(student)},
		{"Data de emissão", issuedAt.Format("02/01/2006")},
		{"", ""},
		{"Aluno", student.Name},
		{"Número de estudante", student.StudentNumber},
		{"Número do BI", student.IDNumber},
		{"Telefone", student.Phone},
		{"Email", email},
		{"", ""},
		{"Curso", fmt.Sprintf("%s (%s)", course.Name, course.Code)},
		{"Turma", pair.Name},
		{"Período", pair.PeriodRange},
		{"Data de inscrição", student.EnrolledAt.Format("02/01/2006")},
		{"", ""},
		{"Método de pagamento", string(student.PaymentMethod)},
		{"Estado", string(student.Status)},
		{"Valor pago", student.AmountPaid},
	}
	for i, row := range rows {
		r := i + 1
		if err := f.SetCellValue(invoiceSheet, fmt.Sprintf("A%d", r), row[0]); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(invoiceSheet, fmt.Sprintf("B%d", r), row[1]); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(invoiceSheet, "A1", fmt.Sprintf("A%d", len(rows)), bold)
	}
	_ = f.SetColWidth(invoiceSheet, "A", "A", 24)
	_ = f.SetColWidth(invoiceSheet, "B", "B", 40)
	return f, nil
}

// BuildStudentExport writes one row per student below a header row.
func BuildStudentExport(students []model.Student) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	headers := []string{"Número", "Nome", "BI", "Telefone", "Email", "Curso", "Turno", "Método de pagamento", "Valor pago", "Estado", "Data de inscrição"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, header)
	}

	for i, st := range students {
		row := i + 2
		email := ""
		if st.Email != nil {
			email = *st.Email
		}
		values := []any{
			st.StudentNumber, st.Name, st.IDNumber, st.Phone, email, st.CourseCode, st.Shift,
			string(st.PaymentMethod), st.AmountPaid, string(st.Status), st.EnrolledAt.Format("02/01/2006"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}
