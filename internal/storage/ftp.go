package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/filedock/backend/internal/apperrors"
	"github.com/jlaffaye/ftp"
)

// FTPStore keeps file content on a remote FTP server. It implements the
// same contract as LocalStore so deployments can point the pipeline at
// offsite storage without touching the orchestration.
type FTPStore struct {
	addr        string
	user        string
	password    string
	root        string
	maxBytes    int64
	allowedExts map[string]struct{}
	dialTimeout time.Duration
}

func NewFTPStore(host string, port int, user, password, root string, maxBytes int64, allowedExts []string) *FTPStore {
	return &FTPStore{
		addr:        fmt.Sprintf("%s:%d", host, port),
		user:        user,
		password:    password,
		root:        path.Join("/", root),
		maxBytes:    maxBytes,
		allowedExts: extSet(allowedExts),
		dialTimeout: 30 * time.Second,
	}
}

// connect dials and logs in. Each operation uses its own connection so
// concurrent requests never share FTP control state.
func (s *FTPStore) connect() (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(s.addr, ftp.DialWithTimeout(s.dialTimeout))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "connect to FTP storage", err)
	}
	if err := conn.Login(s.user, s.password); err != nil {
		conn.Quit()
		return nil, apperrors.Wrap(apperrors.KindStorage, "FTP login failed", err)
	}
	return conn, nil
}

func (s *FTPStore) Save(ctx context.Context, r io.Reader, declaredName string, declaredSize int64) (string, int64, error) {
	if err := checkUploadable(r, declaredName, declaredSize, s.maxBytes, s.allowedExts); err != nil {
		return "", 0, err
	}

	key := GenerateKey(declaredName)
	remotePath, err := s.Resolve(key)
	if err != nil {
		return "", 0, err
	}

	conn, err := s.connect()
	if err != nil {
		return "", 0, err
	}
	defer conn.Quit()

	s.makeDirs(conn, path.Dir(remotePath))

	limit := r
	if s.maxBytes > 0 {
		limit = io.LimitReader(r, s.maxBytes+1)
	}
	counter := &countingReader{r: limit}

	if err := conn.Stor(remotePath, counter); err != nil {
		return "", 0, apperrors.Wrap(apperrors.KindStorage, "store file on FTP", err)
	}
	if counter.n == 0 {
		conn.Delete(remotePath)
		return "", 0, apperrors.New(apperrors.KindValidation, "cannot store an empty file")
	}
	if s.maxBytes > 0 && counter.n > s.maxBytes {
		conn.Delete(remotePath)
		return "", 0, apperrors.Newf(apperrors.KindValidation, "file exceeds maximum size of %d bytes", s.maxBytes)
	}

	return key, counter.n, nil
}

func (s *FTPStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	remotePath, err := s.Resolve(key)
	if err != nil {
		return nil, err
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		conn.Quit()
		if isFTPNotFound(err) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "no content stored at key %s", key)
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "retrieve file from FTP", err)
	}

	return &ftpReadCloser{resp: resp, conn: conn}, nil
}

func (s *FTPStore) Delete(ctx context.Context, key string) error {
	remotePath, err := s.Resolve(key)
	if err != nil {
		return err
	}

	conn, err := s.connect()
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Delete(remotePath); err != nil && !isFTPNotFound(err) {
		return apperrors.Wrap(apperrors.KindStorage, "delete file from FTP", err)
	}
	return nil
}

// Resolve joins root+key with slash semantics and verifies containment,
// mirroring the local backend's defense against traversal.
func (s *FTPStore) Resolve(key string) (string, error) {
	if key == "" {
		return "", apperrors.New(apperrors.KindValidation, "storage key cannot be empty")
	}
	if strings.HasPrefix(key, "/") {
		return "", apperrors.Newf(apperrors.KindStorage, "access denied: storage key %q resolves outside the storage root", key)
	}

	remotePath := path.Join(s.root, key)
	if remotePath == s.root || !strings.HasPrefix(remotePath, s.root+"/") {
		return "", apperrors.Newf(apperrors.KindStorage, "access denied: storage key %q resolves outside the storage root", key)
	}
	return remotePath, nil
}

// makeDirs creates each segment of dir, ignoring already-exists errors.
func (s *FTPStore) makeDirs(conn *ftp.ServerConn, dir string) {
	segments := strings.Split(strings.Trim(dir, "/"), "/")
	current := ""
	for _, seg := range segments {
		current = current + "/" + seg
		if err := conn.MakeDir(current); err != nil && !isFTPAlreadyExists(err) {
			log.Printf("FTPStore: mkdir %s: %v", current, err)
		}
	}
}

func isFTPNotFound(err error) bool {
	var proto *textproto.Error
	if errors.As(err, &proto) {
		return proto.Code == ftp.StatusFileUnavailable
	}
	return false
}

func isFTPAlreadyExists(err error) bool {
	var proto *textproto.Error
	if errors.As(err, &proto) {
		// Servers report an existing directory as 550 or 553.
		return proto.Code == ftp.StatusFileUnavailable || proto.Code == ftp.StatusBadFileName
	}
	return false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ftpReadCloser ties the data connection's lifetime to the control
// connection so the caller can stream and then release both.
type ftpReadCloser struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (f *ftpReadCloser) Read(p []byte) (int, error) {
	return f.resp.Read(p)
}

func (f *ftpReadCloser) Close() error {
	err := f.resp.Close()
	if qerr := f.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}
