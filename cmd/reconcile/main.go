// Command reconcile repairs booking state after partial failures: it issues
// missing invoices for paid reservations and, with -release-stuck, returns
// slots that are held by nobody to the inventory.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/service"
)

func main() {
	limit := flag.Int("limit", 100, "maximum invoices to issue in this run")
	releaseStuck := flag.Bool("release-stuck", false, "release slots with no cart hold and no active reservation")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	cfg := config.Load()
	log := logger.New("reconcile", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database: %v", err)
	}
	defer db.Close()

	tx := repository.NewTransactor(db)
	reservations := repository.NewReservationRepo(db)
	invoices := service.NewInvoiceService(tx, reservations, repository.NewInvoiceRepo(db), cfg.Location, log)

	n, err := invoices.Reconcile(ctx, *limit)
	if err != nil {
		log.Error("reconcile invoices: %v (issued %d before failing)", err, n)
	} else {
		log.Info("issued %d missing invoices", n)
	}

	if *releaseStuck {
		inv := service.NewInventoryService(repository.NewSlotRepo(db), cfg.Location, log, nil)
		released, err := inv.ReleaseStuck(ctx, cfg.Booking.StuckGrace)
		if err != nil {
			log.Fatal("release stuck slots: %v", err)
		}
		log.Info("released %d stuck slots", released)
	}
}
