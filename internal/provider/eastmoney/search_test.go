package eastmoney_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockquote/internal/browser"
	"stockquote/internal/browser/browsermock"
	"stockquote/internal/provider"
	"stockquote/internal/provider/eastmoney"
)

const renderTimeout = time.Second

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(b)
}

func newClient(options ...eastmoney.ClientOption) *eastmoney.Client {
	base := []eastmoney.ClientOption{
		eastmoney.WithSettle(0),
		eastmoney.WithRenderTimeout(renderTimeout),
	}
	return eastmoney.New(append(base, options...)...)
}

func searchURL(query string) string {
	return eastmoney.DefaultSearchURL + "?keyword=" + url.QueryEscape(query)
}

// expectPage stubs one successful navigate, wait and snapshot of pageURL.
func expectPage(s *browsermock.MockSession, pageURL, html string) {
	gomock.InOrder(
		s.EXPECT().Navigate(gomock.Any(), pageURL).Return(nil),
		s.EXPECT().WaitVisible(gomock.Any(), gomock.Any(), renderTimeout).Return(nil),
		s.EXPECT().HTML(gomock.Any()).Return(html, nil),
	)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		fixture string
		want    provider.Instrument
	}{
		{
			name:    "company name",
			query:   "贵州茅台",
			fixture: "search_moutai.html",
			want: provider.Instrument{
				Name:  "贵州茅台",
				Code:  "600519",
				Class: provider.ClassStock,
				URL:   "https://quote.eastmoney.com/sh600519.html",
			},
		},
		{
			name:    "exact code",
			query:   "600519",
			fixture: "search_moutai.html",
			want: provider.Instrument{
				Name:  "贵州茅台",
				Code:  "600519",
				Class: provider.ClassStock,
				URL:   "https://quote.eastmoney.com/sh600519.html",
			},
		},
		{
			name:    "overseas ticker",
			query:   "AAPL",
			fixture: "search_aapl.html",
			want: provider.Instrument{
				Name:  "苹果",
				Code:  "AAPL",
				Class: provider.ClassOverseas,
				URL:   "https://quote.eastmoney.com/us/AAPL.html",
			},
		},
		{
			name:    "thematic keyword takes the top row",
			query:   "红利低波",
			fixture: "search_theme.html",
			want: provider.Instrument{
				Name:  "红利低波ETF华泰柏瑞",
				Code:  "512890",
				Class: provider.ClassFund,
				URL:   "https://quote.eastmoney.com/sh512890.html",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			ctrl := gomock.NewController(t)
			session := browsermock.NewMockSession(ctrl)
			expectPage(session, searchURL(tt.query), fixture(t, tt.fixture))

			// Act
			got, err := newClient().Resolve(t.Context(), session, tt.query)

			// Assert
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NoCandidates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)
	expectPage(session, searchURL("zzzqqqxxx000"), fixture(t, "search_empty.html"))

	_, err := newClient().Resolve(t.Context(), session, "zzzqqqxxx000")

	require.ErrorIs(t, err, provider.ErrNoMatch)
	var nm *provider.NoMatchError
	require.ErrorAs(t, err, &nm)
	require.Equal(t, "no candidates", nm.Reason)
	require.False(t, nm.Timeout)
}

func TestResolve_EmptyQueryDoesNotNavigate(t *testing.T) {
	t.Parallel()

	// Arrange: no calls are expected on the session.
	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)

	_, err := newClient().Resolve(t.Context(), session, "")

	require.ErrorIs(t, err, provider.ErrNoMatch)
}

func TestResolve_WaitsForResultsOrEmptyNotice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)
	session.EXPECT().Navigate(gomock.Any(), gomock.Any()).Return(nil)
	session.EXPECT().
		WaitVisible(gomock.Any(), gomock.Any(), renderTimeout).
		DoAndReturn(func(_ context.Context, selector string, _ time.Duration) error {
			for _, want := range []string{".exstock", ".c_table tbody tr", ".search_noresult"} {
				require.Contains(t, selector, want)
			}
			return nil
		})
	session.EXPECT().HTML(gomock.Any()).Return(fixture(t, "search_moutai.html"), nil)

	_, err := newClient().Resolve(t.Context(), session, "贵州茅台")
	require.NoError(t, err)
}

func TestResolve_RetriesOnce(t *testing.T) {
	t.Parallel()

	// Arrange: the first render times out, the second succeeds.
	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)
	page := searchURL("贵州茅台")
	gomock.InOrder(
		session.EXPECT().Navigate(gomock.Any(), page).Return(nil),
		session.EXPECT().WaitVisible(gomock.Any(), gomock.Any(), renderTimeout).Return(browser.ErrRenderTimeout),
		session.EXPECT().Navigate(gomock.Any(), page).Return(nil),
		session.EXPECT().WaitVisible(gomock.Any(), gomock.Any(), renderTimeout).Return(nil),
		session.EXPECT().HTML(gomock.Any()).Return(fixture(t, "search_moutai.html"), nil),
	)

	// Act
	got, err := newClient().Resolve(t.Context(), session, "贵州茅台")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "600519", got.Code)
}

func TestResolve_TimeoutOnEveryAttempt(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)
	session.EXPECT().Navigate(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	session.EXPECT().WaitVisible(gomock.Any(), gomock.Any(), gomock.Any()).Return(browser.ErrRenderTimeout).Times(2)

	_, err := newClient().Resolve(t.Context(), session, "贵州茅台")

	var nm *provider.NoMatchError
	require.ErrorAs(t, err, &nm)
	require.True(t, nm.Timeout)
	require.Equal(t, "search results did not render", nm.Reason)
}

func TestResolve_LoadTimeoutIsTolerated(t *testing.T) {
	t.Parallel()

	// Arrange: the load event never fires but results render.
	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)
	gomock.InOrder(
		session.EXPECT().Navigate(gomock.Any(), gomock.Any()).Return(browser.ErrRenderTimeout),
		session.EXPECT().WaitVisible(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		session.EXPECT().HTML(gomock.Any()).Return(fixture(t, "search_aapl.html"), nil),
	)

	got, err := newClient().Resolve(t.Context(), session, "AAPL")

	require.NoError(t, err)
	require.Equal(t, "AAPL", got.Code)
}

func TestResolve_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)
	session.EXPECT().
		Navigate(gomock.Any(), gomock.Any()).
		Return(errors.New("page load error net::ERR_NAME_NOT_RESOLVED")).
		Times(1)

	_, err := newClient(eastmoney.WithAttempts(3)).Resolve(t.Context(), session, "AAPL")

	require.Error(t, err)
	require.NotErrorIs(t, err, provider.ErrNoMatch)
	require.ErrorContains(t, err, "ERR_NAME_NOT_RESOLVED")
}

func TestWithSearchURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	session := browsermock.NewMockSession(ctrl)
	session.EXPECT().
		Navigate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, pageURL string) error {
			require.Truef(t, strings.HasPrefix(pageURL, "http://localhost:8080/s?"), "unexpected url: %s", pageURL)
			require.Contains(t, pageURL, "keyword=AAPL")
			require.Contains(t, pageURL, "type=1")
			return nil
		})
	session.EXPECT().WaitVisible(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	session.EXPECT().HTML(gomock.Any()).Return(fixture(t, "search_aapl.html"), nil)

	_, err := newClient(eastmoney.WithSearchURL("http://localhost:8080/s?type=1")).Resolve(t.Context(), session, "AAPL")
	require.NoError(t, err)
}
