package tapo

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"time"

	"codeberg.org/helvik/tapowatt/internal/errors"
	"codeberg.org/helvik/tapowatt/internal/logger"
	"github.com/go-resty/resty/v2"
)

const (
	handshakeKeyBits = 1024
	sessionKeyLen    = 32 // 16 bytes AES key followed by 16 bytes IV
)

// Device is an authenticated session against a Tapo energy-monitoring plug
// on the local network. It implements PowerReader.
type Device struct {
	address string
	rc      *resty.Client
	cipher  *sessionCipher
	token   string
}

// request is the envelope for both outer and passthrough-wrapped calls
type request struct {
	Method          string `json:"method"`
	Params          any    `json:"params,omitempty"`
	RequestTimeMils int64  `json:"requestTimeMils,omitempty"`
}

// response is the matching envelope; Result stays raw until decrypted
// and dispatched to the operation's payload type
type response struct {
	ErrorCode int             `json:"error_code"`
	Result    json.RawMessage `json:"result,omitempty"`
}

type handshakeResult struct {
	Key string `json:"key"`
}

type loginResult struct {
	Token string `json:"token"`
}

type passthroughResult struct {
	Response string `json:"response"`
}

// Connect performs the handshake and login against the device at the given
// address and returns a ready-to-use session. The device is never
// reconnected on failure; callers re-run the tool instead.
func Connect(ctx context.Context, address, username, password string) (*Device, error) {
	if address == "" {
		return nil, errors.WithData(ErrConnectFailed, "empty device address")
	}

	d := &Device{
		address: address,
		rc:      resty.New().SetBaseURL(fmt.Sprintf("http://%s/app", address)),
	}

	if err := d.handshake(ctx); err != nil {
		return nil, errors.Wrap(ErrHandshakeFailed, err)
	}

	if err := d.login(ctx, username, password); err != nil {
		return nil, errors.Wrap(ErrLoginFailed, err)
	}

	logger.Debug().Str("address", address).Msg("Device session established")

	return d, nil
}

// handshake exchanges a fresh RSA public key for the AES session key. The
// device replies with the key material encrypted under our public key and
// a session cookie that must accompany every subsequent call.
func (d *Device) handshake(ctx context.Context) error {
	key, err := rsa.GenerateKey(rand.Reader, handshakeKeyBits)
	if err != nil {
		return err
	}

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	resp, err := d.rc.R().
		SetContext(ctx).
		SetBody(request{
			Method:          "handshake",
			Params:          map[string]string{"key": string(pubPEM)},
			RequestTimeMils: time.Now().UnixMilli(),
		}).
		Post("")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %s", resp.Request.URL, resp.Status())
	}

	var envelope response
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return errors.Wrap(ErrDecodeFailed, err)
	}
	if err := newDeviceError(envelope.ErrorCode); err != nil {
		return err
	}

	var result handshakeResult
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		return errors.Wrap(ErrDecodeFailed, err)
	}

	encrypted, err := base64.StdEncoding.DecodeString(result.Key)
	if err != nil {
		return errors.Wrap(ErrDecodeFailed, err)
	}

	material, err := rsa.DecryptPKCS1v15(rand.Reader, key, encrypted)
	if err != nil {
		return err
	}
	if len(material) != sessionKeyLen {
		return errors.WithData(ErrDecodeFailed, "unexpected session key length")
	}

	d.cipher, err = newSessionCipher(material[:16], material[16:])
	if err != nil {
		return err
	}

	// The session cookie outlives the handshake call
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "TP_SESSIONID" {
			d.rc.SetCookie(cookie)
		}
	}

	return nil
}

func (d *Device) login(ctx context.Context, username, password string) error {
	params := map[string]string{
		"username": encodeUsername(username),
		"password": encodePassword(password),
	}

	var result loginResult
	if err := d.execute(ctx, "login_device", params, &result); err != nil {
		return err
	}

	d.token = result.Token
	d.rc.SetQueryParam("token", d.token)

	return nil
}

// execute wraps an operation in the securePassthrough envelope, sends it,
// and decrypts the inner response into result (which may be nil when the
// operation has no payload).
func (d *Device) execute(ctx context.Context, method string, params, result any) error {
	inner, err := json.Marshal(request{
		Method:          method,
		Params:          params,
		RequestTimeMils: time.Now().UnixMilli(),
	})
	if err != nil {
		return errors.Wrap(ErrRequestFailed, err)
	}

	resp, err := d.rc.R().
		SetContext(ctx).
		SetBody(request{
			Method: "securePassthrough",
			Params: map[string]string{"request": d.cipher.Encrypt(inner)},
		}).
		Post("")
	if err != nil {
		return errors.Wrap(ErrRequestFailed, err)
	}
	if resp.IsError() {
		return errors.WithData(ErrRequestFailed, fmt.Sprintf("%s: %s", resp.Request.URL, resp.Status()))
	}

	var outer response
	if err := json.Unmarshal(resp.Body(), &outer); err != nil {
		return errors.Wrap(ErrDecodeFailed, err)
	}
	if err := newDeviceError(outer.ErrorCode); err != nil {
		return errors.Wrap(ErrDeviceRejected, err)
	}

	var wrapped passthroughResult
	if err := json.Unmarshal(outer.Result, &wrapped); err != nil {
		return errors.Wrap(ErrDecodeFailed, err)
	}

	plain, err := d.cipher.Decrypt(wrapped.Response)
	if err != nil {
		return err
	}

	var envelope response
	if err := json.Unmarshal(plain, &envelope); err != nil {
		return errors.Wrap(ErrDecodeFailed, err)
	}
	if err := newDeviceError(envelope.ErrorCode); err != nil {
		return errors.Wrap(ErrDeviceRejected, err)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return errors.Wrap(ErrDecodeFailed, err)
		}
	}

	return nil
}

// CurrentPower returns the instantaneous power draw in watts
func (d *Device) CurrentPower(ctx context.Context) (float64, error) {
	var result CurrentPowerResult
	if err := d.execute(ctx, "get_current_power", nil, &result); err != nil {
		return 0, errors.Wrap(ErrPollFailed, err)
	}

	return float64(result.CurrentPower), nil
}

// Info returns the device's identity and status
func (d *Device) Info(ctx context.Context) (*DeviceInfo, error) {
	var result DeviceInfo
	if err := d.execute(ctx, "get_device_info", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// EnergyUsage returns the device's cumulative energy counters
func (d *Device) EnergyUsage(ctx context.Context) (*EnergyUsage, error) {
	var result EnergyUsage
	if err := d.execute(ctx, "get_energy_usage", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// SetOn switches the plug relay on or off
func (d *Device) SetOn(ctx context.Context, on bool) error {
	return d.execute(ctx, "set_device_info", map[string]any{"device_on": on}, nil)
}

// encodeUsername digests the account email the way the device expects:
// hex-encoded SHA1, then base64.
func encodeUsername(username string) string {
	digest := sha1.Sum([]byte(username))
	hexDigest := hex.EncodeToString(digest[:])

	return base64.StdEncoding.EncodeToString([]byte(hexDigest))
}

func encodePassword(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password))
}
