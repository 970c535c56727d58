/*
 * This file is part of NexusTracker.
 *
 * NexusTracker is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * NexusTracker is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with NexusTracker.  If not, see <http://www.gnu.org/licenses/>.
 */

package collector

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	uptimeMetric    *prometheus.Desc
	requestsMetric  *prometheus.Desc
	announcesMetric *prometheus.Desc
	scrapesMetric   *prometheus.Desc

	erroredRequestsMetric *prometheus.Desc
	rateLimitedMetric     *prometheus.Desc
	completionsMetric     *prometheus.Desc

	invitesCreatedMetric  *prometheus.Desc
	invitesConsumedMetric *prometheus.Desc

	deadlockCountMetric   *prometheus.Desc
	deadlockAbortedMetric *prometheus.Desc
	deadlockTimeMetric    *prometheus.Desc
	sqlErrorCountMetric   *prometheus.Desc

	sweepTimeHistogram prometheus.Histogram
}

var (
	startTime time.Time

	requests        uint64
	announces       uint64
	scrapes         uint64
	erroredRequests uint64
	rateLimited     uint64
	completions     uint64
	invitesCreated  uint64
	invitesConsumed uint64

	deadlockCount   uint64
	deadlockAborted uint64
	deadlockNanos   int64
	sqlErrorCount   uint64
)

var sweepTime = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "nexustracker_sweep_seconds",
	Help:    "Histogram of the time taken by one maintenance sweep over the ledger",
	Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
})

func NewCollector() *Collector {
	startTime = time.Now()

	return &Collector{
		uptimeMetric: prometheus.NewDesc("nexustracker_uptime",
			"System uptime in seconds", nil, nil),
		requestsMetric: prometheus.NewDesc("nexustracker_requests",
			"Number of requests received", nil, nil),
		announcesMetric: prometheus.NewDesc("nexustracker_announces",
			"Number of announces recorded in the ledger", nil, nil),
		scrapesMetric: prometheus.NewDesc("nexustracker_scrapes",
			"Number of scrape requests served", nil, nil),

		erroredRequestsMetric: prometheus.NewDesc("nexustracker_requests_fail",
			"Number of failed requests", nil, nil),
		rateLimitedMetric: prometheus.NewDesc("nexustracker_requests_ratelimited",
			"Number of announces rejected by the rate limiter", nil, nil),
		completionsMetric: prometheus.NewDesc("nexustracker_completions",
			"Number of torrent completions recorded", nil, nil),

		invitesCreatedMetric: prometheus.NewDesc("nexustracker_invites_created",
			"Number of invite codes issued", nil, nil),
		invitesConsumedMetric: prometheus.NewDesc("nexustracker_invites_consumed",
			"Number of invite codes consumed", nil, nil),

		deadlockCountMetric: prometheus.NewDesc("nexustracker_deadlock_count",
			"Number of unique database deadlocks encountered", nil, nil),
		deadlockAbortedMetric: prometheus.NewDesc("nexustracker_deadlock_aborted_count",
			"Number of times deadlock retries were exceeded", nil, nil),
		deadlockTimeMetric: prometheus.NewDesc("nexustracker_deadlock_seconds_total",
			"Total time wasted awaiting to free deadlock", nil, nil),
		sqlErrorCountMetric: prometheus.NewDesc("nexustracker_sql_errors_count",
			"Number of SQL errors", nil, nil),

		sweepTimeHistogram: sweepTime,
	}
}

func (collector *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.uptimeMetric
	ch <- collector.requestsMetric
	ch <- collector.announcesMetric
	ch <- collector.scrapesMetric
	ch <- collector.erroredRequestsMetric
	ch <- collector.rateLimitedMetric
	ch <- collector.completionsMetric
	ch <- collector.invitesCreatedMetric
	ch <- collector.invitesConsumedMetric
	ch <- collector.deadlockCountMetric
	ch <- collector.deadlockAbortedMetric
	ch <- collector.deadlockTimeMetric
	ch <- collector.sqlErrorCountMetric

	sweepTime.Describe(ch)
}

func (collector *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(collector.uptimeMetric, prometheus.CounterValue,
		time.Since(startTime).Seconds())
	ch <- prometheus.MustNewConstMetric(collector.requestsMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&requests)))
	ch <- prometheus.MustNewConstMetric(collector.announcesMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&announces)))
	ch <- prometheus.MustNewConstMetric(collector.scrapesMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&scrapes)))
	ch <- prometheus.MustNewConstMetric(collector.erroredRequestsMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&erroredRequests)))
	ch <- prometheus.MustNewConstMetric(collector.rateLimitedMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&rateLimited)))
	ch <- prometheus.MustNewConstMetric(collector.completionsMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&completions)))
	ch <- prometheus.MustNewConstMetric(collector.invitesCreatedMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&invitesCreated)))
	ch <- prometheus.MustNewConstMetric(collector.invitesConsumedMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&invitesConsumed)))
	ch <- prometheus.MustNewConstMetric(collector.deadlockCountMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&deadlockCount)))
	ch <- prometheus.MustNewConstMetric(collector.deadlockAbortedMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&deadlockAborted)))
	ch <- prometheus.MustNewConstMetric(collector.deadlockTimeMetric, prometheus.CounterValue,
		time.Duration(atomic.LoadInt64(&deadlockNanos)).Seconds())
	ch <- prometheus.MustNewConstMetric(collector.sqlErrorCountMetric, prometheus.CounterValue,
		float64(atomic.LoadUint64(&sqlErrorCount)))

	sweepTime.Collect(ch)
}

func IncrementRequests() {
	atomic.AddUint64(&requests, 1)
}

func IncrementAnnounces() {
	atomic.AddUint64(&announces, 1)
}

func IncrementScrapes() {
	atomic.AddUint64(&scrapes, 1)
}

func IncrementErroredRequests() {
	atomic.AddUint64(&erroredRequests, 1)
}

func IncrementRateLimited() {
	atomic.AddUint64(&rateLimited, 1)
}

func IncrementCompletions() {
	atomic.AddUint64(&completions, 1)
}

func IncrementInvitesCreated() {
	atomic.AddUint64(&invitesCreated, 1)
}

func IncrementInvitesConsumed() {
	atomic.AddUint64(&invitesConsumed, 1)
}

func IncrementDeadlockCount() {
	atomic.AddUint64(&deadlockCount, 1)
}

func IncrementDeadlockTime(wait time.Duration) {
	atomic.AddInt64(&deadlockNanos, int64(wait))
}

func IncrementDeadlockAborted() {
	atomic.AddUint64(&deadlockAborted, 1)
}

func IncrementSQLErrorCount() {
	atomic.AddUint64(&sqlErrorCount, 1)
}

func UpdateSweepTime(elapsed time.Duration) {
	sweepTime.Observe(elapsed.Seconds())
}
