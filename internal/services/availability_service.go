package services

import (
	"log"
	"regexp"

	"whisperbox/internal/repositories"
)

// AvailabilityStatus classifies the outcome of a username availability check.
type AvailabilityStatus string

const (
	AvailabilityUnique  AvailabilityStatus = "unique"
	AvailabilityTaken   AvailabilityStatus = "taken"
	AvailabilityInvalid AvailabilityStatus = "invalid"
	AvailabilityError   AvailabilityStatus = "error"
)

// AvailabilityVerdict is the result of a single availability check. It
// echoes the candidate it evaluated so a caller firing overlapping checks
// can discard verdicts for superseded candidates.
type AvailabilityVerdict struct {
	Candidate string             `json:"username"`
	Status    AvailabilityStatus `json:"status"`
	Message   string             `json:"message"`
}

// usernameRegex enforces the username charset and length: 3-20 characters,
// letters, digits and underscores. Matching is case-sensitive everywhere.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ValidUsername reports whether the candidate satisfies the username rules.
func ValidUsername(candidate string) bool {
	return usernameRegex.MatchString(candidate)
}

// AvailabilityService answers username availability lookups during
// registration. It only ever reads the directory. Debouncing keystrokes is
// the caller's concern; the service is safe under repeated overlapping calls.
type AvailabilityService struct {
	userRepo repositories.UserRepository
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(userRepo repositories.UserRepository) *AvailabilityService {
	return &AvailabilityService{
		userRepo: userRepo,
	}
}

// Check derives the verdict for a candidate username.
func (s *AvailabilityService) Check(candidate string) AvailabilityVerdict {
	if !ValidUsername(candidate) {
		return AvailabilityVerdict{
			Candidate: candidate,
			Status:    AvailabilityInvalid,
			Message:   "Username must be 3-20 characters using letters, numbers or underscores",
		}
	}

	exists, err := s.userRepo.UsernameExists(candidate)
	if err != nil {
		log.Printf("Error checking username %q: %v", candidate, err)
		return AvailabilityVerdict{
			Candidate: candidate,
			Status:    AvailabilityError,
			Message:   "Error checking username, please try again",
		}
	}
	if exists {
		return AvailabilityVerdict{
			Candidate: candidate,
			Status:    AvailabilityTaken,
			Message:   "Username is already taken",
		}
	}
	return AvailabilityVerdict{
		Candidate: candidate,
		Status:    AvailabilityUnique,
		Message:   "Username is unique",
	}
}
