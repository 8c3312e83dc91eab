package config

type WorkerKeyStruct struct {
	PersistAuditQueue string
	AuditViewQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAuditQueue: "persist_audit_queue",
	AuditViewQueue:    "persist_audit_views_queue",
}
