package cart

import "time"

// Recorder собирает метрики корзины. Реализуется пакетом metrics.
type Recorder interface {
	RecordHydration(source string)
	RecordMutation(op string)
	RecordPersist(result string, duration time.Duration)
	RecordEventPublish(result string)
	RecordScopeOpened()
	RecordScopeClosed()
}

type noopRecorder struct{}

func (noopRecorder) RecordHydration(string)              {}
func (noopRecorder) RecordMutation(string)               {}
func (noopRecorder) RecordPersist(string, time.Duration) {}
func (noopRecorder) RecordEventPublish(string)           {}
func (noopRecorder) RecordScopeOpened()                  {}
func (noopRecorder) RecordScopeClosed()                  {}
