package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "credentials.json"
)

// Credentials selects how the client authenticates. A service account JSON
// wins over the OAuth desktop flow.
type Credentials struct {
	ServiceAccountJSON string // contents of a service account key
	ClientID           string // OAuth client, falls back to credentials.json
	ClientSecret       string
	Account            string // token-<Account>.json; the only saved account if empty
}

// clientOption builds the authenticated transport option for the calendar service.
func clientOption(ctx context.Context, creds Credentials) (option.ClientOption, error) {
	if creds.ServiceAccountJSON != "" {
		sa, err := google.CredentialsFromJSON(ctx, []byte(creds.ServiceAccountJSON), calendar.CalendarScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GOOGLE_CREDENTIALS JSON: %w", err)
		}
		return option.WithCredentials(sa), nil
	}

	config, err := getOAuthConfig(creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	account := creds.Account
	if account == "" {
		accounts, err := GetTokenAccounts(".")
		if err != nil {
			return nil, fmt.Errorf("could not list saved google accounts: %w", err)
		}
		switch len(accounts) {
		case 0:
			return nil, errors.New("no google accounts found. Run the 'auth' command first")
		case 1:
			account = accounts[0]
		default:
			return nil, fmt.Errorf("several google accounts found (%s), set GOOGLE_ACCOUNT", strings.Join(accounts, ", "))
		}
	}

	token, err := tokenFromFile(tokenFileName(account))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", account, err)
	}
	return option.WithHTTPClient(config.Client(ctx, token)), nil
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes explicit client credentials over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken saves the token of an account in the working directory and
// returns the file name.
func SaveToken(account string, token *oauth2.Token) (string, error) {
	path := tokenFileName(account)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return path, json.NewEncoder(f).Encode(token)
}

func tokenFileName(account string) string {
	return "token-" + account + ".json"
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the accounts that have a token file in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
