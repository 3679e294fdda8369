package checklist

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusNotYet Status = "NotYet"
	StatusDone   Status = "Done"
)

type Entry struct {
	ID       string
	OrderNo  int
	Patient  string
	Hospital string
	Phone    string
	Time     time.Duration // offset from midnight
	Status   Status
}

func (e Entry) Done() bool { return e.Status == StatusDone }

// TimeDisplay renders Time as HH:mm.
func (e Entry) TimeDisplay() string {
	m := int(e.Time / time.Minute)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
