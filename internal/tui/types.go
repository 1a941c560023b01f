package tui

import (
	"time"

	"github.com/fentz26/allot/internal/models"
)

type errMsg struct {
	err error
}

type runsLoadedMsg struct {
	runs []RunItem
}

type runLoadedMsg struct {
	run *models.RunRecord
}

type daemonStatusMsg struct {
	online bool
}

type tickMsg time.Time
