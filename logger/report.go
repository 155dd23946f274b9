package logger

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var (
	errorCount    int64
	warnCount     int64
	upstreamBars  int64
	upstreamCalls int64
	cacheHits     int64
	cacheMisses   int64
	storeReads    int64
	storeWrites   int64
)

func recordWarn()  { atomic.AddInt64(&warnCount, 1) }
func recordError() { atomic.AddInt64(&errorCount, 1) }

// IncrementFetch records one upstream kline request and the bar count it
// returned.
func IncrementFetch(bars int) {
	atomic.AddInt64(&upstreamCalls, 1)
	atomic.AddInt64(&upstreamBars, int64(bars))
}

func IncrementCacheHit()  { atomic.AddInt64(&cacheHits, 1) }
func IncrementCacheMiss() { atomic.AddInt64(&cacheMisses, 1) }

func IncrementStoreRead()  { atomic.AddInt64(&storeReads, 1) }
func IncrementStoreWrite() { atomic.AddInt64(&storeWrites, 1) }

// StartReport begins periodic logging of system and subsystem statistics,
// publishing the same figures to CloudWatch when that client is configured.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors":         atomic.LoadInt64(&errorCount),
		"warns":          atomic.LoadInt64(&warnCount),
		"upstream_calls": atomic.LoadInt64(&upstreamCalls),
		"upstream_bars":  atomic.LoadInt64(&upstreamBars),
		"cache_hits":     atomic.LoadInt64(&cacheHits),
		"cache_misses":   atomic.LoadInt64(&cacheMisses),
		"store_reads":    atomic.LoadInt64(&storeReads),
		"store_writes":   atomic.LoadInt64(&storeWrites),
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      int64(memStats.Used) / 1024 / 1024,
		"disk_mb":        int64(diskStats.Used) / 1024 / 1024,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		{MetricName: aws.String("Errors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorCount)))},
		{MetricName: aws.String("Warns"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnCount)))},
		{MetricName: aws.String("UpstreamCalls"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&upstreamCalls)))},
		{MetricName: aws.String("UpstreamBars"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&upstreamBars)))},
		{MetricName: aws.String("CacheHits"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&cacheHits)))},
		{MetricName: aws.String("CacheMisses"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&cacheMisses)))},
		{MetricName: aws.String("StoreReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&storeReads)))},
		{MetricName: aws.String("StoreWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&storeWrites)))},
	}
	publishMetrics(ctx, data)
}
