package service

import (
	"context"
	"fmt"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
)

// ledgerPageSize bounds each trip page read while building the ledger
const ledgerPageSize = 200

// LedgerService exports the finance ledger of all trips
type LedgerService interface {
	Export(ctx context.Context, actor *entity.User) ([]byte, error)
}

type ledgerServiceImpl struct {
	tripRepo port.TripRepository
	dataRepo port.TripDataRepository
	userRepo port.UserRepository
	writer   port.LedgerWriter
	logger   Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(tripRepo port.TripRepository, dataRepo port.TripDataRepository, userRepo port.UserRepository, writer port.LedgerWriter, logger Logger) LedgerService {
	return &ledgerServiceImpl{
		tripRepo: tripRepo,
		dataRepo: dataRepo,
		userRepo: userRepo,
		writer:   writer,
		logger:   logger,
	}
}

// Export renders every trip with its costs; finance and admins only
func (s *ledgerServiceImpl) Export(ctx context.Context, actor *entity.User) ([]byte, error) {
	if !actor.IsAdmin() && !actor.HasGroup(entity.GroupFinance) {
		return nil, entity.Forbidden("export_ledger", "only finance or administrators can export the ledger")
	}

	names := make(map[int64]string)
	name := func(id int64) string {
		if id == 0 {
			return ""
		}
		if n, ok := names[id]; ok {
			return n
		}
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil || u == nil {
			names[id] = fmt.Sprintf("#%d", id)
		} else {
			names[id] = u.Name
		}
		return names[id]
	}

	var rows []port.LedgerRow
	for offset := 0; ; offset += ledgerPageSize {
		trips, err := s.tripRepo.List(ctx, ledgerPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list trips: %w", err)
		}
		for _, trip := range trips {
			data, err := s.dataRepo.GetByTripID(ctx, trip.ID)
			if err != nil {
				return nil, fmt.Errorf("load trip data %d: %w", trip.ID, err)
			}
			trip.Data = data

			items, err := entity.DecodePlanItems(trip.PlanItemsJSON)
			if err != nil {
				s.logger.Warn("Skipping unreadable plan items", "trip_id", trip.ID, "error", err)
			}
			rows = append(rows, port.LedgerRow{
				Trip:      trip,
				Employee:  name(trip.EmployeeID),
				Manager:   name(trip.ManagerID),
				Organizer: name(trip.OrganizerID),
				PlanItems: items,
			})
		}
		if len(trips) < ledgerPageSize {
			break
		}
	}

	out, err := s.writer.Write(rows)
	if err != nil {
		s.logger.Error("Failed to render ledger", "error", err)
		return nil, fmt.Errorf("write ledger: %w", err)
	}
	s.logger.Info("Ledger exported", "actor_id", actor.ID, "trips", len(rows))
	return out, nil
}
