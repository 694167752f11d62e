package faces

import (
	"fmt"
	"sort"

	"face-auth-backend/internal/shared/util"
)

// CountImages sums the images across all poses.
func CountImages(images map[string][]string) int {
	total := 0
	for _, list := range images {
		total += len(list)
	}
	return total
}

// ValidateCount returns the image total, failing with ErrCountMismatch unless it
// equals RequiredImages.
func ValidateCount(images map[string][]string) (int, error) {
	total := CountImages(images)
	if total != RequiredImages {
		return total, fmt.Errorf("%w: %d required, received %d", ErrCountMismatch, RequiredImages, total)
	}
	return total, nil
}

type enrollmentImage struct {
	name    string
	payload string
}

// flatten orders poses alphabetically and names each image {pose}_{index}.
func flatten(images map[string][]string) ([]enrollmentImage, error) {
	poses := make([]string, 0, len(images))
	for pose := range images {
		poses = append(poses, pose)
	}
	sort.Strings(poses)

	out := make([]enrollmentImage, 0, CountImages(images))
	for _, pose := range poses {
		if len(images[pose]) == 0 {
			continue
		}
		clean, err := util.SanitizeSegment(pose)
		if err != nil || clean != pose {
			return nil, fmt.Errorf("%w: invalid pose label %q", ErrValidation, pose)
		}
		for idx, payload := range images[pose] {
			out = append(out, enrollmentImage{
				name:    fmt.Sprintf("%s_%d", pose, idx),
				payload: payload,
			})
		}
	}
	return out, nil
}
