package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/auth"
	"loan-backend/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultIssuer    = "LoanDesk"
	backupCodeCount  = 10
	backupCodeLength = 8
)

// 2FA errors. Attempt throttling is done by the rate limiter in front of the routes.
var (
	ErrNoTOTPSecret    = fmt.Errorf("%w: 2FA setup not initiated", apperrors.ErrConflict)
	ErrTOTPNotEnabled  = fmt.Errorf("%w: 2FA is not enabled", apperrors.ErrConflict)
	ErrTOTPEnabled     = fmt.Errorf("%w: 2FA is already enabled", apperrors.ErrConflict)
	ErrInvalidTOTPCode = fmt.Errorf("%w: invalid verification code", apperrors.ErrInvalidRequest)
	ErrInvalidPassword = fmt.Errorf("%w: invalid password", apperrors.ErrUnauthorized)
)

type TOTPService struct {
	users  UserStore
	issuer string
}

func NewTOTPService(users UserStore, issuer string) *TOTPService {
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &TOTPService{
		users:  users,
		issuer: issuer,
	}
}

// GenerateSetup creates a new TOTP secret and QR code for a user
func (s *TOTPService) GenerateSetup(ctx context.Context, userID int) (*models.TOTPSetupResponse, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, ErrTOTPEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	// Stored but not active until a code is confirmed
	if err := s.users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		URL:         key.URL(),
		Issuer:      s.issuer,
		AccountName: user.Email,
	}, nil
}

// VerifyAndEnable checks the first code from the authenticator app, enables 2FA
// and returns the plaintext backup codes, which are shown once.
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID int, code string) (*models.BackupCodesResponse, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, ErrTOTPEnabled
	}
	if user.TOTPSecret == "" {
		return nil, ErrNoTOTPSecret
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return nil, ErrInvalidTOTPCode
	}

	codes, hashed, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := s.users.EnableTOTP(ctx, userID, hashed); err != nil {
		return nil, err
	}
	return &models.BackupCodesResponse{Codes: codes}, nil
}

// Verify validates a TOTP code or a single-use backup code during login
func (s *TOTPService) Verify(ctx context.Context, userID int, code string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}

	if totp.Validate(code, user.TOTPSecret) {
		return nil
	}
	if s.consumeBackupCode(ctx, userID, code, user.BackupCodes) {
		return nil
	}
	return ErrInvalidTOTPCode
}

// Disable turns 2FA off after checking the password and a current code
func (s *TOTPService) Disable(ctx context.Context, userID int, password, code string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return ErrInvalidPassword
	}
	if !user.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return s.users.DisableTOTP(ctx, userID)
}

// RegenerateBackupCodes replaces every backup code
func (s *TOTPService) RegenerateBackupCodes(ctx context.Context, userID int, password string) (*models.BackupCodesResponse, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidPassword
	}
	if !user.TOTPEnabled {
		return nil, ErrTOTPNotEnabled
	}

	codes, hashed, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := s.users.SetBackupCodes(ctx, userID, hashed); err != nil {
		return nil, err
	}
	return &models.BackupCodesResponse{Codes: codes}, nil
}

func (s *TOTPService) GetStatus(ctx context.Context, userID int) (*models.User2FAStatus, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.User2FAStatus{
		Enabled:        user.TOTPEnabled,
		EnabledAt:      user.TOTPVerifiedAt,
		HasBackupCodes: user.BackupCodes != "" && user.BackupCodes != "[]",
	}, nil
}

// generateBackupCodes returns the plaintext codes and their bcrypt hashes as a JSON array
func generateBackupCodes() ([]string, string, error) {
	codes := make([]string, backupCodeCount)
	hashedCodes := make([]string, backupCodeCount)

	for i := 0; i < backupCodeCount; i++ {
		code, err := generateRandomCode(backupCodeLength)
		if err != nil {
			return nil, "", err
		}
		codes[i] = code

		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, "", err
		}
		hashedCodes[i] = string(hash)
	}

	hashedJSON, err := json.Marshal(hashedCodes)
	if err != nil {
		return nil, "", err
	}
	return codes, string(hashedJSON), nil
}

// consumeBackupCode checks code against the stored hashes and removes the one it matches
func (s *TOTPService) consumeBackupCode(ctx context.Context, userID int, code, storedCodes string) bool {
	if storedCodes == "" {
		return false
	}

	var hashedCodes []string
	if err := json.Unmarshal([]byte(storedCodes), &hashedCodes); err != nil {
		return false
	}

	for i, hash := range hashedCodes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			hashedCodes = append(hashedCodes[:i], hashedCodes[i+1:]...)
			updatedJSON, err := json.Marshal(hashedCodes)
			if err != nil {
				return false
			}
			if err := s.users.SetBackupCodes(ctx, userID, string(updatedJSON)); err != nil {
				return false
			}
			return true
		}
	}
	return false
}

// generateRandomCode creates a random alphanumeric code
func generateRandomCode(length int) (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no I, O, 0, 1
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	code := make([]byte, length)
	for i := range code {
		code[i] = charset[int(randomBytes[i])%len(charset)]
	}
	return string(code), nil
}
