package scenario

import (
	"context"
	"errors"
	"fmt"

	"cp1-controllers/internal/waypoint"
)

// PlaceObstacle puts an obstacle on each of the two waypoints closest to the robot.
func (r *Runner) PlaceObstacle(ctx context.Context) ([]string, error) {
	pose, err := r.Env.GetPose(ctx)
	if err != nil {
		r.Logger.Errorf("Failed to read robot pose: %v", err)
		return nil, err
	}

	first, second, err := r.Map.TwoClosest(pose.X, pose.Y)
	if err != nil {
		return nil, err
	}

	var names []string
	var errs []error
	for _, w := range []waypoint.Waypoint{first, second} {
		name, err := r.Registry.Place(ctx, w.X, w.Y)
		if err != nil {
			errs = append(errs, fmt.Errorf("place obstacle at %s: %w", w.Name, err))
			continue
		}
		names = append(names, name)
	}
	return names, errors.Join(errs...)
}

// RemoveObstacles removes every registered obstacle.
func (r *Runner) RemoveObstacles(ctx context.Context) ([]string, error) {
	if r.Registry.Len() == 0 {
		r.Logger.Infof("No obstacles to remove")
		return nil, nil
	}
	return r.Registry.RemoveAll(ctx)
}
