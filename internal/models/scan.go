package models

import "time"

// ScanEvent is one inbound bus message, as received.
type ScanEvent struct {
	Topic   string
	Payload []byte
}

// ValidatedScan is a scan payload that passed schema validation.
type ValidatedScan struct {
	DeviceSn string
	DeviceID string
	TagNum   int64
	TagID    string
}

// ScanLogEntry 扫描记录（rfid_logs）
type ScanLogEntry struct {
	CardUID      string
	ReaderID     string
	IsAuthorized bool
	Timestamp    time.Time
	TenantID     int64
	EventType    string
	RawData      string
	Notes        string
}

// EventTypeScan is the rfid_logs.event_type of a tag read.
const EventTypeScan = "scan"
