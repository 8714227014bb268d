package models

import "time"

// Reader RFID 读卡器（rfid_readers）
type Reader struct {
	ReaderID      string
	TenantID      *int64
	Name          string
	Location      string
	IsOnline      bool
	LastHeartbeat *time.Time
}

// ReaderGroupDefault is the reader_group_id given to auto-provisioned readers.
const ReaderGroupDefault = 1
