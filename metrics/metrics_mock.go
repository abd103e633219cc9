package metrics

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordConnectionAccept mock
func (me *MetricsEngineMock) RecordConnectionAccept(success bool) {
	me.Called(success)
}

// RecordConnectionClose mock
func (me *MetricsEngineMock) RecordConnectionClose(success bool) {
	me.Called(success)
}

// RecordGateCreated mock
func (me *MetricsEngineMock) RecordGateCreated() {
	me.Called()
}

// RecordPhase mock
func (me *MetricsEngineMock) RecordPhase(phase string) {
	me.Called(phase)
}

// RecordProviderLoad mock
func (me *MetricsEngineMock) RecordProviderLoad(providerID string, outcome LoadOutcome, loadTime time.Duration) {
	me.Called(providerID, outcome, loadTime)
}

// RecordWaterfall mock
func (me *MetricsEngineMock) RecordWaterfall(outcome WaterfallOutcome) {
	me.Called(outcome)
}

// RecordRedirect mock
func (me *MetricsEngineMock) RecordRedirect(withAd bool) {
	me.Called(withAd)
}

// RecordTelemetry mock
func (me *MetricsEngineMock) RecordTelemetry(status TelemetryStatus) {
	me.Called(status)
}

// RecordActiveGates mock
func (me *MetricsEngineMock) RecordActiveGates(count int) {
	me.Called(count)
}
