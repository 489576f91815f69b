package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"studioflow/internal/database"
	"studioflow/internal/events"
	"studioflow/internal/models"
	"studioflow/internal/whatsapp"
	"studioflow/shared/notify"
)

// registerNotificationHandlers queues WhatsApp notices off domain events.
// Handlers never fail the publisher; a lost notice is logged and dropped.
func registerNotificationHandlers(
	bus *events.Bus,
	db *database.DB,
	notifications *notify.Service,
	composer whatsapp.Composer,
	logger zerolog.Logger,
) {
	log := logger.With().Str("component", "notification_handlers").Logger()

	bus.Subscribe(events.TopicAssignmentCreated, func(e events.Event) error {
		assignment, ok := e.Payload.(*models.Assignment)
		if !ok || assignment.PersonID() == 0 {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		person, err := db.GetPerson(ctx, assignment.FirmID, assignment.PersonID())
		if err != nil {
			log.Error().Err(err).Int64("person_id", assignment.PersonID()).Msg("person lookup failed")
			return nil
		}
		if person.Phone == "" {
			return nil
		}

		event, err := db.GetEvent(ctx, assignment.FirmID, assignment.EventID)
		if err != nil {
			log.Error().Err(err).Int64("event_id", assignment.EventID).Msg("event lookup failed")
			return nil
		}

		personID := assignment.PersonID()
		err = notifications.Queue(ctx, &notify.Notification{
			FirmID:    assignment.FirmID,
			Recipient: person.Phone,
			PersonID:  &personID,
			EventID:   &assignment.EventID,
			Kind:      notify.KindAssignmentNotice,
			Body:      composer.AssignmentNotice(person.Name, event.Title, assignment.Role, event.Range()),
		})
		if err != nil {
			log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to queue assignment notice")
		}
		return nil
	})

	bus.Subscribe(events.TopicPaymentRecorded, func(e events.Event) error {
		payment, ok := e.Payload.(*models.Payment)
		if !ok || payment.EventID == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		event, err := db.GetEvent(ctx, payment.FirmID, *payment.EventID)
		if err != nil {
			log.Error().Err(err).Int64("event_id", *payment.EventID).Msg("event lookup failed")
			return nil
		}
		client, err := db.GetClient(ctx, payment.FirmID, event.ClientID)
		if err != nil {
			log.Error().Err(err).Int64("client_id", event.ClientID).Msg("client lookup failed")
			return nil
		}
		if client.Phone == "" {
			return nil
		}

		err = notifications.Queue(ctx, &notify.Notification{
			FirmID:    payment.FirmID,
			Recipient: client.Phone,
			EventID:   payment.EventID,
			Kind:      notify.KindPaymentReceipt,
			Body:      composer.PaymentReceipt(client.Name, event.Title, payment.Amount),
		})
		if err != nil {
			log.Error().Err(err).Int64("payment_id", payment.ID).Msg("failed to queue payment receipt")
		}
		return nil
	})
}
