package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/cryptox"
	"github.com/dmitrijs2005/lifevault/internal/logging"
	sc "github.com/dmitrijs2005/lifevault/internal/server/config"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	"github.com/dmitrijs2005/lifevault/internal/server/notify"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lifevault/internal/timex"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// snapshotLinkTTL is how long a disclosure download link stays valid.
const snapshotLinkTTL = 7 * 24 * time.Hour

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// vaultSnapshot is the payload sealed into object storage when a vault is
// disclosed: the owner's identity plus every asset description they recorded.
type vaultSnapshot struct {
	UserID      string          `json:"user_id"`
	OwnerName   string          `json:"owner_name"`
	OwnerEmail  string          `json:"owner_email"`
	GeneratedAt time.Time       `json:"generated_at"`
	Assets      []*models.Asset `json:"assets"`
}

// DisclosureService crosses the one-way gate at the end of an escalation
// cycle: it snapshots the vault, seals and archives the snapshot, and
// notifies every verified trusted contact with a time-limited download link.
//
// The service itself never flips the revealed flag; the scheduler does that
// only after Reveal returns success, so a partial failure is retried on the
// next tick with already-notified contacts skipped.
type DisclosureService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	notifier    notify.Notifier
	clock       timex.Clock
	logger      logging.Logger
}

func NewDisclosureService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, n notify.Notifier, clock timex.Clock, log logging.Logger) *DisclosureService {
	return &DisclosureService{
		db:          db,
		repomanager: m,
		config:      cfg,
		notifier:    n,
		clock:       clock,
		logger:      log.With("module", "disclosure_service"),
	}
}

func (s *DisclosureService) getS3Client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}
	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func snapshotStorageKey(userID string) string {
	return fmt.Sprintf("disclosures/%s/%v", userID, uuid.New())
}

// archiveSnapshot seals the snapshot and uploads it, returning a presigned
// download URL valid for snapshotLinkTTL.
func (s *DisclosureService) archiveSnapshot(ctx context.Context, snap *vaultSnapshot) (string, error) {
	secret := []byte(s.config.SnapshotSecret)
	defer common.WipeByteArray(secret)

	sealed, err := cryptox.Seal(snap, secret)
	if err != nil {
		return "", fmt.Errorf("error sealing snapshot: %w", err)
	}

	client, err := s.getS3Client()
	if err != nil {
		return "", fmt.Errorf("error creating s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := snapshotStorageKey(snap.UserID)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(sealed),
	}); err != nil {
		return "", fmt.Errorf("error uploading snapshot: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(snapshotLinkTTL))
	if err != nil {
		return "", fmt.Errorf("error presigning snapshot: %w", err)
	}
	return req.URL, nil
}

// Reveal discloses the user's vault: snapshot, seal, archive, then notify
// every verified contact not yet notified. It succeeds only when all pending
// contacts were dispatched; callers treat success as the signal to mark the
// record revealed.
func (s *DisclosureService) Reveal(ctx context.Context, rec *models.ActivityRecord) error {
	contactRepo := s.repomanager.Contacts(s.db)

	all, err := contactRepo.ListVerified(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("error listing contacts: %w", err)
	}
	var pending []*models.TrustedContact
	for _, c := range all {
		if !c.Notified {
			pending = append(pending, c)
		}
	}
	if len(all) == 0 {
		// No one to disclose to. The gate still closes so Expired stops
		// firing; the audit row records the outcome.
		s.logger.Warn(ctx, "vault expired with no verified contacts", "user", rec.UserID)
		s.audit(ctx, rec.UserID, models.ActionVaultRevealed, "expired with no verified contacts")
		return nil
	}
	if len(pending) == 0 {
		return nil
	}

	assetList, err := s.repomanager.Assets(s.db).ListByUser(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("error listing assets: %w", err)
	}

	url, err := s.archiveSnapshot(ctx, &vaultSnapshot{
		UserID:      rec.UserID,
		OwnerName:   rec.Name,
		OwnerEmail:  rec.Email,
		GeneratedAt: s.clock.Now(),
		Assets:      assetList,
	})
	if err != nil {
		return err
	}

	for _, c := range pending {
		if err := s.notifier.SendDisclosure(ctx, rec, c, url); err != nil {
			return fmt.Errorf("error notifying contact %s: %w", c.ID, err)
		}
		if err := contactRepo.MarkNotified(ctx, c.ID, s.clock.Now()); err != nil {
			// The email went out; a bookkeeping failure must not re-run the
			// whole disclosure. Worst case the contact gets a second notice.
			s.logger.Error(ctx, "failed to mark contact notified",
				"user", rec.UserID, "contact", c.ID, "error", err.Error())
		}
		s.audit(ctx, rec.UserID, models.ActionNotificationSent,
			fmt.Sprintf("disclosure notice sent to contact %s", c.ID))
	}

	s.audit(ctx, rec.UserID, models.ActionVaultRevealed,
		fmt.Sprintf("vault disclosed to %d contact(s)", len(pending)))
	s.logger.Warn(ctx, "vault disclosed", "user", rec.UserID, "contacts", len(pending))
	return nil
}

func (s *DisclosureService) audit(ctx context.Context, userID, action, details string) {
	entry := &models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repomanager.ActivityLog(s.db).Append(ctx, entry); err != nil {
		s.logger.Warn(ctx, "audit append failed", "user", userID, "action", action, "error", err.Error())
	}
}
