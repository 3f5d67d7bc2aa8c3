// Copyright 2025 Alexandre Mahdhaoui
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package boottest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	testsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootprobe_tests_total",
			Help: "Boot-test scenario runs by result, VMM variant and distribution family.",
		},
		[]string{"result", "vmm", "distro"},
	)

	stageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootprobe_stage_failures_total",
			Help: "Boot-test failures by the stage that was reached.",
		},
		[]string{"stage"},
	)

	testDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bootprobe_test_duration_seconds",
			Help:    "Wall-clock duration of boot-test scenario runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"vmm", "distro"},
	)
)

func observeReport(r Report) {
	result := "pass"
	if !r.Passed() {
		result = "fail"
	}
	testsTotal.WithLabelValues(result, r.VMM, r.Distro).Inc()
	testDuration.WithLabelValues(r.VMM, r.Distro).Observe(r.Duration.Seconds())
	if r.Err != nil {
		stageFailuresTotal.WithLabelValues(string(r.Stage)).Inc()
	}
}
