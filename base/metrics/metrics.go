/*Package metrics wraps datadog-go to faciliate metric recording
Following are naming convention of metric:
- Internal process time: *.time
- External latency: *.latency
- Error: *.err
- Warning: *.warn
*/
package metrics

import (
	"github.com/spf13/viper"

	"github.com/artemarket/goapi/base/env"
)

const (
	// TagValueNA is used for tags whose values are not available.
	TagValueNA = "n/a"
)

// Ender provides interface for BumpTime
type Ender interface {
	End()
}

// Service provides interface for metrics
type Service interface {
	BumpAvg(key string, val float64, tags ...string)
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)

	BumpTime(key string, tags ...string) Ender
}

// Option is functional parameter for metrics option
type Option func(*opt)

type opt struct {
	// withPodName means send metrics with pod name or not
	// default: true
	withPodName bool
}

// WithoutPodName disables the pod name tag. Pod name produces a lot of custom
// metrics, use it when grouping by pod is unnecessary.
func WithoutPodName() Option {
	return func(o *opt) {
		o.withPodName = false
	}
}

// New creates a metric client with package name as prefix
func New(pkgName string, options ...Option) Service {
	o := opt{
		withPodName: true,
	}
	for _, option := range options {
		option(&o)
	}

	// using host: removes all tags associated with host
	// ref: https://docs.datadoghq.com/developers/dogstatsd/data_types/#host-tag-key
	ddTags := []string{
		"host:",
		"env:" + viper.GetString("env_name"),
		"app:" + viper.GetString("app_name"),
	}
	if o.withPodName {
		ddTags = append(ddTags, "pod:"+env.PodName())
	}

	return &Metrics{
		pkgName: pkgName,
		datadog: DDMetrics{
			ddTags: ddTags,
		},
	}
}

// Metrics sends metrics through a datadog statsd client
type Metrics struct {
	pkgName string
	datadog DDMetrics
}

func (mt *Metrics) bumpPanic(key, tag string) {
	mt.datadog.BumpSum(key, 1, 1, "tag", tag)
}

// BumpAvg bumps the average for the given key.
func (mt *Metrics) BumpAvg(key string, val float64, tags ...string) {
	defer func() {
		if err := recover(); err != nil {
			mt.bumpPanic("bumpavg.panic", mt.pkgName+`.`+key)
		}
	}()
	mt.datadog.BumpAvg(mt.pkgName+`.`+key, val, ddRate, tags...)
}

// BumpSum bumps the sum for the given key.
func (mt *Metrics) BumpSum(key string, val float64, tags ...string) {
	defer func() {
		if err := recover(); err != nil {
			mt.bumpPanic("bumpsum.panic", mt.pkgName+`.`+key)
		}
	}()
	mt.datadog.BumpSum(mt.pkgName+`.`+key, val, ddRate, tags...)
}

// BumpHistogram bumps the histogram for the given key.
func (mt *Metrics) BumpHistogram(key string, val float64, tags ...string) {
	defer func() {
		if err := recover(); err != nil {
			mt.bumpPanic("bumphistogram.panic", mt.pkgName+`.`+key)
		}
	}()
	mt.datadog.BumpHistogram(mt.pkgName+`.`+key, val, ddRate, tags...)
}

// BumpTime starts a timer for the given key. Calling End() on the returned
// value records the elapsed time:
//
//     defer s.BumpTime("my.function").End()
func (mt *Metrics) BumpTime(key string, tags ...string) Ender {
	return mt.datadog.BumpTime(mt.pkgName+`.`+key, ddRate, tags...)
}
