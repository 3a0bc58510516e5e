package evaluate

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/atst-dev/atst/internal/project"
	"github.com/atst-dev/atst/internal/report"
)

// Run evaluates all solutions over a bounded pool of workers, each
// solution owning its own compiled artifact and buffers. Reports come
// back in discovery order regardless of completion order. The first
// environment-level fault cancels the remaining work.
func (e *Engine) Run(ctx context.Context, solutions []project.Solution, jobs int) ([]report.Solution, error) {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(solutions) {
		jobs = len(solutions)
	}
	if jobs <= 1 {
		return e.runSequential(ctx, solutions)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make(chan int)
	results := make([]report.Solution, len(solutions))
	errs := make(chan error, jobs)

	var wg sync.WaitGroup
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				res, err := e.Evaluate(ctx, solutions[i])
				if err != nil {
					errs <- err
					cancel()
					return
				}
				results[i] = res
			}
		}()
	}

	for i := range solutions {
		select {
		case indexes <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(indexes)
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) runSequential(ctx context.Context, solutions []project.Solution) ([]report.Solution, error) {
	results := make([]report.Solution, 0, len(solutions))
	for _, sol := range solutions {
		res, err := e.Evaluate(ctx, sol)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("solution evaluated",
			zap.String("solution", sol.Name), zap.String("score", res.Score.String()))
		results = append(results, res)
	}
	return results, nil
}
