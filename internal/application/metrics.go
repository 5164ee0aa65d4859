package application

import "time"

type nopMetrics struct{}

func (nopMetrics) WebhookHandled(string, string, time.Duration) {}
func (nopMetrics) ProjectionFailed(string)                      {}
func (nopMetrics) OutboxDispatched(string)                      {}
func (nopMetrics) QueueItem(string, string)                     {}
func (nopMetrics) SyncRun(string, string)                       {}
func (nopMetrics) SyncDuration(string, time.Duration)           {}
func (nopMetrics) IntegrationDisabled()                         {}
