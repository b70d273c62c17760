// Command shop-users is a CLI client for the user account service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

const usageText = `shop-users CLI
Usage:
  shop-users -addr URL [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  register   -u <username> -e <email> -p <password> [-phone <phone>] [-name <real name>]
  login      -u <username> -p <password>     (saves token)
  logout                                     (removes saved token)
  me
  get        -id <user id>
  update     [-phone <phone>] [-name <real name>] [-avatar <url>]
`

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		var ae *apiError
		if errors.As(err, &ae) {
			fmt.Fprintf(os.Stderr, "error: %s (code %d)\n", ae.Message, ae.Code)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

// run dispatches a subcommand. Output goes to w.
func run(ctx context.Context, args []string, w io.Writer) error {
	global := flag.NewFlagSet("shop-users", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	addr := global.String("addr", "http://localhost:8080", "server base URL")
	caPath := global.String("cacert", "", "CA cert (PEM)")
	insecure := global.Bool("insecure", false, "skip cert verify (dev)")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() < 1 {
		fmt.Fprint(w, usageText)
		return errUsage
	}

	hc, err := newHTTPClient(*caPath, *insecure)
	if err != nil {
		return err
	}
	cl := &apiClient{base: *addr, http: hc}
	cmd, rest := global.Arg(0), global.Args()[1:]

	switch cmd {
	case "version":
		fmt.Fprintf(w, "shop-users %s (%s)\n", version, buildDate)
		return nil
	case "register":
		return cmdRegister(ctx, cl, rest, w)
	case "login":
		return cmdLogin(ctx, cl, rest, w)
	case "logout":
		return removeToken()
	case "me":
		return cmdMe(ctx, cl, w)
	case "get":
		return cmdGet(ctx, cl, rest, w)
	case "update":
		return cmdUpdate(ctx, cl, rest, w)
	default:
		fmt.Fprint(w, usageText)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func cmdRegister(ctx context.Context, cl *apiClient, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	u := fs.String("u", "", "username")
	e := fs.String("e", "", "email")
	p := fs.String("p", "", "password")
	phone := fs.String("phone", "", "phone")
	name := fs.String("name", "", "real name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" || *e == "" || *p == "" {
		return fmt.Errorf("%w: need -u, -e and -p", errUsage)
	}

	var user map[string]any
	_, err := cl.do(ctx, http.MethodPost, "/api/users/register", map[string]string{
		"username": *u, "email": *e, "password": *p, "confirmPassword": *p,
		"phone": *phone, "realName": *name,
	}, &user)
	if err != nil {
		return err
	}
	printJSON(w, user)
	return nil
}

type loginData struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int64  `json:"expiresIn"`
}

func cmdLogin(ctx context.Context, cl *apiClient, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" || *p == "" {
		return fmt.Errorf("%w: need -u and -p", errUsage)
	}

	var ld loginData
	if _, err := cl.do(ctx, http.MethodPost, "/api/users/login", map[string]string{"username": *u, "password": *p}, &ld); err != nil {
		return err
	}
	fallback := time.Now().Add(time.Duration(ld.ExpiresIn) * time.Millisecond)
	tf := tokenFile{
		AccessToken: ld.Token,
		UserID:      ld.UserID,
		Username:    ld.Username,
		ExpiresAt:   tokenExpiry(ld.Token, fallback),
	}
	if err := saveToken(tf); err != nil {
		return err
	}
	fmt.Fprintln(w, "ok")
	return nil
}

func cmdMe(ctx context.Context, cl *apiClient, w io.Writer) error {
	tf, err := loadToken()
	if err != nil {
		return err
	}
	cl.bearer = tf.AccessToken
	var user map[string]any
	if _, err := cl.do(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return err
	}
	printJSON(w, user)
	return nil
}

func cmdGet(ctx context.Context, cl *apiClient, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.Int64("id", 0, "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("%w: need -id", errUsage)
	}
	var user map[string]any
	if _, err := cl.do(ctx, http.MethodGet, "/api/users/"+strconv.FormatInt(*id, 10), nil, &user); err != nil {
		return err
	}
	printJSON(w, user)
	return nil
}

func cmdUpdate(ctx context.Context, cl *apiClient, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	phone := fs.String("phone", "", "phone")
	name := fs.String("name", "", "real name")
	avatar := fs.String("avatar", "", "avatar URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// only flags actually given are sent
	body := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "phone":
			body["phone"] = *phone
		case "name":
			body["realName"] = *name
		case "avatar":
			body["avatarUrl"] = *avatar
		}
	})
	if len(body) == 0 {
		return fmt.Errorf("%w: nothing to update", errUsage)
	}

	tf, err := loadToken()
	if err != nil {
		return err
	}
	cl.bearer = tf.AccessToken
	var user map[string]any
	if _, err := cl.do(ctx, http.MethodPut, "/api/users/"+strconv.FormatInt(tf.UserID, 10), body, &user); err != nil {
		return err
	}
	printJSON(w, user)
	return nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
