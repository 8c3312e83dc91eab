package model

// FileAttachment is a file sent inline to send-files-email.
type FileAttachment struct {
	Name    string `json:"name" binding:"required,max=255"`
	Content string `json:"content" binding:"required,base64"`
	Type    string `json:"type" binding:"required,max=100"`
}

// SendFilesEmailRequest is the send-files-email function body.
type SendFilesEmailRequest struct {
	StudentName string           `json:"studentName" binding:"required,max=200"`
	StudentInfo map[string]any   `json:"studentInfo"`
	Files       []FileAttachment `json:"files" binding:"omitempty,max=10,dive"`
}

// DocumentPaths holds storage paths of a student's documents.
type DocumentPaths struct {
	Photo        *string `json:"foto,omitempty"`
	IDCopy       *string `json:"copiaBI,omitempty"`
	Certificate  *string `json:"declaracaoCertificado,omitempty"`
	PaymentProof *string `json:"comprovativoPagamento,omitempty"`
}

// ByKind returns the non-empty paths keyed by document kind, in upload order.
func (d DocumentPaths) ByKind() map[DocumentKind]string {
	out := make(map[DocumentKind]string, 4)
	for kind, p := range map[DocumentKind]*string{
		DocPhoto:        d.Photo,
		DocIDCopy:       d.IDCopy,
		DocCertificate:  d.Certificate,
		DocPaymentProof: d.PaymentProof,
	} {
		if p != nil && *p != "" {
			out[kind] = *p
		}
	}
	return out
}

// DocumentPathsOf converts a student's stored documents.
func DocumentPathsOf(s *Student) DocumentPaths {
	return DocumentPaths{
		Photo:        s.PhotoPath,
		IDCopy:       s.IDCopyPath,
		Certificate:  s.CertificatePath,
		PaymentProof: s.PaymentProofPath,
	}
}

// StudentDocumentsRequest is the send-student-documents function body.
type StudentDocumentsRequest struct {
	StudentData map[string]any `json:"studentData" binding:"required"`
	Files       DocumentPaths  `json:"files"`
}
